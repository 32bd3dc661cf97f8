package proposer

import "service-courier-match/internal/ports/matchstore"

// Store is what the proposer needs from storage.
type Store interface {
	matchstore.Catalog
	matchstore.Proposals
}

// Metrics receives proposer counters.
type Metrics interface {
	Proposal(result string)
	EventPublished(status string)
}

type nopMetrics struct{}

func (nopMetrics) Proposal(string)       {}
func (nopMetrics) EventPublished(string) {}

// Proposal outcomes reported to Metrics.
const (
	ResultCreated   = "created"
	ResultContended = "contended"
	ResultNone      = "none"
)
