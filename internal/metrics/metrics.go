package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// Match groups the coordinator and proposer collectors.
type Match struct {
	Transitions *prometheus.CounterVec
	CASRetries  prometheus.Counter
	Proposals   *prometheus.CounterVec
	Published   *prometheus.CounterVec
}

// NewMatch returns unregistered match collectors.
func NewMatch() *Match {
	return &Match{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_transitions_total",
			Help: "Total number of match records entering a status",
		}, []string{"status"}),
		CASRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "match_cas_retries_total",
			Help: "Total number of version conflicts retried by the coordinator",
		}),
		Proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_proposals_total",
			Help: "Total number of proposer runs by result",
		}, []string{"result"}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_events_published_total",
			Help: "Total number of events written to the match channel",
		}, []string{"status"}),
	}
}

// Collectors returns every collector of m.
func (m *Match) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Transitions, m.CASRetries, m.Proposals, m.Published}
}

// Transition counts a record entering status.
func (m *Match) Transition(status string) { m.Transitions.WithLabelValues(status).Inc() }

// CASRetry counts a retried version conflict.
func (m *Match) CASRetry() { m.CASRetries.Inc() }

// Proposal counts a proposer run outcome.
func (m *Match) Proposal(result string) { m.Proposals.WithLabelValues(result).Inc() }

// EventPublished counts a channel write.
func (m *Match) EventPublished(status string) { m.Published.WithLabelValues(status).Inc() }

// Register registers cs, reusing collectors that are already registered.
func Register(reg prometheus.Registerer, cs ...prometheus.Collector) error {
	var errs []error
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
