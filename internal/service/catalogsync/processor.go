// Package catalogsync turns catalog change events into proposals and
// withdrawals.
package catalogsync

import (
	"context"
	"errors"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/logx"
)

// Processor processes catalog events
type Processor struct {
	proposer ProposerPort
	canceler CancelPort
	logger   logx.Logger
	factory  *actionFactory
}

// NewProcessor creates a new catalogsync.Processor
func NewProcessor(proposer ProposerPort, canceler CancelPort, logger logx.Logger) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	p := &Processor{
		proposer: proposer,
		canceler: canceler,
		logger:   logger.With(logx.String("component", "catalog_sync")),
	}
	p.factory = newActionFactory(p.onAvailable, p.onRemoved)
	return p
}

// Handle processes a single catalogsync.Event. Unknown changes are ignored.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	fn, ok := p.factory.get(e.Change)
	if !ok {
		p.logger.Debug("catalog change ignored", logx.EntryID(e.EntryID), logx.String("change", e.Change))
		return nil
	}
	return fn(ctx, e)
}

func (p *Processor) onAvailable(ctx context.Context, e Event) error {
	_, err := p.proposer.Propose(ctx, e.EntryID)
	if errors.Is(err, apperr.ErrNotFound) {
		// deleted before we got to it
		return nil
	}
	return err
}

func (p *Processor) onRemoved(ctx context.Context, e Event) error {
	res, err := p.canceler.CancelByOrder(ctx, e.EntryID, "catalog entry "+e.Change)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !res.AlreadyResolved {
		p.logger.Info("match withdrawn with its entry",
			logx.EntryID(e.EntryID),
			logx.MatchID(res.MatchID),
		)
	}
	return nil
}
