// Package match coordinates the two-party confirmation of proposed matches.
package match

import (
	"context"
	"time"

	"service-courier-match/internal/events"
	"service-courier-match/internal/logx"
	"service-courier-match/internal/ports/matchstore"
)

// Config tunes the coordinator.
type Config struct {
	OperationTimeout time.Duration
	SweepBatch       int
	// SettleGrace is how long a terminal record may stay unsettled before
	// the sweeper repairs it.
	SettleGrace time.Duration
	Retry       RetryConfig
}

// Deps are the collaborators of the coordinator. Notifier, Metrics and Now
// are optional.
type Deps struct {
	Matches      matchstore.Matches
	Catalog      matchstore.Catalog
	Materializer matchstore.Materializer
	Publisher    events.Publisher
	Notifier     Notifier
	Metrics      Metrics
	Now          func() time.Time
}

// Service is the match coordinator.
type Service struct {
	matches      matchstore.Matches
	catalog      matchstore.Catalog
	materializer matchstore.Materializer
	publisher    events.Publisher
	notifier     Notifier
	metrics      Metrics
	logger       logx.Logger

	operationTimeout time.Duration
	sweepBatch       int
	settleGrace      time.Duration
	retry            RetryConfig

	now func() time.Time
}

// NewService constructs the coordinator.
func NewService(deps Deps, cfg Config, logger logx.Logger) *Service {
	if logger == nil {
		logger = logx.Nop()
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 3 * time.Second
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}
	if cfg.SettleGrace <= 0 {
		cfg.SettleGrace = cfg.OperationTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 8
	}
	if cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		cfg.Retry.MaxDelay = cfg.Retry.BaseDelay
	}

	s := &Service{
		matches:          deps.Matches,
		catalog:          deps.Catalog,
		materializer:     deps.Materializer,
		publisher:        deps.Publisher,
		notifier:         deps.Notifier,
		metrics:          deps.Metrics,
		logger:           logger.With(logx.String("component", "match_coordinator")),
		operationTimeout: cfg.OperationTimeout,
		sweepBatch:       cfg.SweepBatch,
		settleGrace:      cfg.SettleGrace,
		retry:            cfg.Retry,
		now:              deps.Now,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.operationTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.operationTimeout)
}
