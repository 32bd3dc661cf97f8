package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/logx"
)

// RetryConfig bounds the re-read and merge loop run on version conflicts.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// mutateFunc derives the next record from the current one. Returning nil
// finishes without a write.
type mutateFunc func(cur domain.MatchRecord) (*domain.MatchRecord, error)

// update loads matchID and applies fn until its compare-and-swap succeeds.
// It returns the record as stored after the call and whether this call wrote it.
func (s *Service) update(ctx context.Context, matchID string, fn mutateFunc) (domain.MatchRecord, bool, error) {
	for attempt := 1; ; attempt++ {
		cur, err := s.matches.Get(ctx, matchID)
		if err != nil {
			return domain.MatchRecord{}, false, fmt.Errorf("load match %s: %w", matchID, err)
		}
		if cur == nil {
			return domain.MatchRecord{}, false, fmt.Errorf("match %s: %w", matchID, apperr.ErrNotFound)
		}

		next, err := fn(cur.Clone())
		if err != nil {
			return *cur, false, err
		}
		if next == nil {
			return *cur, false, nil
		}
		next.Version = cur.Version + 1

		err = s.matches.CompareAndSwap(ctx, cur.Version, *next)
		if err == nil {
			return *next, true, nil
		}
		if !errors.Is(err, apperr.ErrVersionConflict) {
			return *cur, false, fmt.Errorf("write match %s: %w", matchID, err)
		}
		if attempt >= s.retry.MaxAttempts {
			s.logger.Error("match version conflicts exhausted",
				logx.MatchID(matchID),
				logx.Int("attempts", attempt),
			)
			return *cur, false, fmt.Errorf("match %s after %d attempts: %w", matchID, attempt, err)
		}

		s.metrics.CASRetry()
		delay := backoff(s.retry.BaseDelay, s.retry.MaxDelay, attempt)
		s.logger.Debug("match version conflict, retrying",
			logx.MatchID(matchID),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
		)
		if !sleepWithContext(ctx, delay) {
			return *cur, false, ctx.Err()
		}
	}
}

// backoff вычисляет задержку повтора
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max || d <= 0 {
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
