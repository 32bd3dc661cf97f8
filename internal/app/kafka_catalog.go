package app

import (
	"context"
	"time"

	"service-courier-match/internal/service/catalogsync"
	"service-courier-match/internal/transport/kafka"
)

type catalogHandler interface {
	Handle(ctx context.Context, e catalogsync.Event) error
}

// makeCatalogHandler bounds every catalog event by timeout.
func makeCatalogHandler(h catalogHandler, timeout time.Duration) kafka.HandleFunc {
	return func(ctx context.Context, event catalogsync.Event) error {
		if timeout <= 0 {
			return h.Handle(ctx, event)
		}
		hCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return h.Handle(hCtx, event)
	}
}
