package matchapi

import (
	"context"
	"errors"
	"time"

	"service-courier-match/internal/logx"
)

type gateway interface {
	Decide(ctx context.Context, req DecisionRequest) (*DecisionReply, error)
	GetMatch(ctx context.Context, orderID string) (*MatchView, error)
}

// RetryConfig describes RetryingGateway backoff.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingGateway repeats calls that failed with ErrUnavailable. Every
// attempt sends the identical request, idempotency key included.
type RetryingGateway struct {
	next   gateway
	logger logx.Logger
	cfg    RetryConfig
}

// NewRetryingGateway returns nil when next is nil.
func NewRetryingGateway(next gateway, logger logx.Logger, cfg RetryConfig) *RetryingGateway {
	if next == nil {
		return nil
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &RetryingGateway{next: next, logger: logger, cfg: cfg}
}

// Decide implements the agent gateway.
func (g *RetryingGateway) Decide(ctx context.Context, req DecisionRequest) (*DecisionReply, error) {
	var out *DecisionReply
	err := g.retry(ctx, "Decide", func() error {
		var err error
		out, err = g.next.Decide(ctx, req)
		return err
	})
	return out, err
}

// GetMatch implements the agent gateway.
func (g *RetryingGateway) GetMatch(ctx context.Context, orderID string) (*MatchView, error) {
	var out *MatchView
	err := g.retry(ctx, "GetMatch", func() error {
		var err error
		out, err = g.next.GetMatch(ctx, orderID)
		return err
	})
	return out, err
}

func (g *RetryingGateway) retry(ctx context.Context, method string, call func() error) error {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == g.cfg.MaxAttempts || !errors.Is(err, ErrUnavailable) {
			break
		}

		delay := backoff(g.cfg.BaseDelay, g.cfg.MaxDelay, attempt)
		g.logger.Warn("match gateway retry",
			logx.String("method", method),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
		return errors.Join(lastErr, ctxErr)
	}
	return lastErr
}

// backoff вычисляет задержку повтора
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max || d < 0 {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
