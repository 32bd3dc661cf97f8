package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	obs "service-courier-match/internal/http/middleware"
	"service-courier-match/internal/metrics"
)

type metricsOut struct {
	dig.Out

	RateLimitExceededTotal prometheus.Counter `name:"rate_limit_exceeded_total"`
	Match                  *metrics.Match
	HTTP                   *obs.HTTPMetrics
	Gatherer               prometheus.Gatherer
}

// provideMetrics registers the service collectors with the default registry.
// Collectors registered earlier (tests, a second container) are reused.
func provideMetrics() (metricsOut, error) {
	reg := prometheus.DefaultRegisterer

	rl, err := register(reg, metrics.NewRateLimitExceededTotal())
	if err != nil {
		return metricsOut{}, fmt.Errorf("register rate_limit_exceeded_total: %w", err)
	}

	m := metrics.NewMatch()
	if m.Transitions, err = register(reg, m.Transitions); err != nil {
		return metricsOut{}, fmt.Errorf("register match_transitions_total: %w", err)
	}
	if m.CASRetries, err = register(reg, m.CASRetries); err != nil {
		return metricsOut{}, fmt.Errorf("register match_cas_retries_total: %w", err)
	}
	if m.Proposals, err = register(reg, m.Proposals); err != nil {
		return metricsOut{}, fmt.Errorf("register match_proposals_total: %w", err)
	}
	if m.Published, err = register(reg, m.Published); err != nil {
		return metricsOut{}, fmt.Errorf("register match_events_published_total: %w", err)
	}

	h := obs.NewHTTPMetrics()
	if h.Requests, err = register(reg, h.Requests); err != nil {
		return metricsOut{}, fmt.Errorf("register http requests: %w", err)
	}
	if h.Duration, err = register(reg, h.Duration); err != nil {
		return metricsOut{}, fmt.Errorf("register http duration: %w", err)
	}

	return metricsOut{
		RateLimitExceededTotal: rl,
		Match:                  m,
		HTTP:                   h,
		Gatherer:               prometheus.DefaultGatherer,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
