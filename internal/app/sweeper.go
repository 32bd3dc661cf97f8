package app

import (
	"context"
	"time"

	"service-courier-match/internal/logx"
)

type expirer interface {
	ExpireSweep(ctx context.Context) (int, error)
}

// startSweepLoop runs ExpireSweep every interval until ctx is done. It is the
// only path that times matches out.
func startSweepLoop(ctx context.Context, logger logx.Logger, s expirer, interval time.Duration) {
	if s == nil || interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := s.ExpireSweep(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Error("match sweep failed", logx.Err(err))
					continue
				}
				if n > 0 {
					logger.Info("match sweep", logx.Int("expired", n))
				}
			}
		}
	}()
}
