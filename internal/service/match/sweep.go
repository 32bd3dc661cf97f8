package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-courier-match/internal/domain"
	"service-courier-match/internal/logx"
)

// ExpireSweep expires every overdue pending record and repairs terminal
// records whose side effects did not complete. It returns the number of
// records this call expired.
func (s *Service) ExpireSweep(ctx context.Context) (int, error) {
	now := s.now()

	listCtx, cancel := s.withTimeout(ctx)
	overdue, err := s.matches.ListExpired(listCtx, now, s.sweepBatch)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	var (
		errs    []error
		expired int
	)
	for _, rec := range overdue {
		wrote, err := s.expire(ctx, rec.ID, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if wrote {
			expired++
		}
	}

	repaired, err := s.repair(ctx, now.Add(-s.settleGrace))
	if err != nil {
		errs = append(errs, err)
	}

	if expired > 0 || repaired > 0 {
		s.logger.Info("match sweep done",
			logx.String("event", "match_sweep"),
			logx.Int("expired", expired),
			logx.Int("repaired", repaired),
		)
	}
	return expired, errors.Join(errs...)
}

func (s *Service) expire(ctx context.Context, matchID string, now time.Time) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec, wrote, err := s.update(ctx, matchID, func(cur domain.MatchRecord) (*domain.MatchRecord, error) {
		if !cur.Overdue(now) {
			return nil, nil
		}
		next, err := cur.Resolve(domain.MatchExpired, domain.Resolution{
			Reason:     domain.ReasonTimeout,
			ResolvedBy: "system",
			ResolvedAt: now.UTC(),
		})
		if err != nil {
			return nil, err
		}
		return &next, nil
	})
	if err != nil {
		return false, fmt.Errorf("expire %s: %w", matchID, err)
	}
	if wrote {
		s.transitioned(ctx, rec)
	}
	return wrote, nil
}

func (s *Service) repair(ctx context.Context, olderThan time.Time) (int, error) {
	listCtx, cancel := s.withTimeout(ctx)
	recs, err := s.matches.ListUnsettled(listCtx, olderThan, s.sweepBatch)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("list unsettled: %w", err)
	}

	var (
		errs     []error
		repaired int
	)
	for _, rec := range recs {
		opCtx, cancel := s.withTimeout(ctx)
		err := s.settle(opCtx, rec)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("repair %s: %w", rec.ID, err))
			continue
		}
		repaired++
	}
	return repaired, errors.Join(errs...)
}
