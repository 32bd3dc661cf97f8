//go:generate mockgen -source=contracts.go -destination=mocks_test.go -package=match_test

package match

import (
	"context"

	"service-courier-match/internal/domain"
)

// Notifier delivers one notification per terminal transition. Delivery may
// repeat after a crash; receivers deduplicate on EventID.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Metrics receives coordinator counters.
type Metrics interface {
	Transition(status string)
	CASRetry()
	EventPublished(status string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Notification) error { return nil }

type nopMetrics struct{}

func (nopMetrics) Transition(string)     {}
func (nopMetrics) CASRetry()             {}
func (nopMetrics) EventPublished(string) {}
