// Package matchstore declares the storage ports shared by the match services
// and their Postgres and in-memory implementations.
package matchstore

import (
	"context"
	"time"

	"service-courier-match/internal/domain"
)

// Matches stores MatchRecords. Get and FindByOrder return nil, nil when absent.
type Matches interface {
	Get(ctx context.Context, id string) (*domain.MatchRecord, error)
	// FindByOrder returns the pending record referencing orderID, or the most
	// recently created one when none is pending.
	FindByOrder(ctx context.Context, orderID string) (*domain.MatchRecord, error)
	// CompareAndSwap replaces the record stored at expectedVersion with next.
	// next.Version must be expectedVersion+1. A stale expectedVersion yields
	// apperr.ErrVersionConflict.
	CompareAndSwap(ctx context.Context, expectedVersion int64, next domain.MatchRecord) error
	// ListExpired returns pending records whose deadline is before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.MatchRecord, error)
	// ListUnsettled returns terminal records resolved before olderThan whose
	// side effects have not completed.
	ListUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]domain.MatchRecord, error)
}

// Proposals creates pending records.
type Proposals interface {
	// CreatePending inserts rec and reserves every entry for rec.ID in one
	// atomic step. An entry that is no longer available at the given version
	// yields apperr.ErrCapacityUnavailable; an existing pending record for the
	// pair or either order yields apperr.ErrConflict.
	CreatePending(ctx context.Context, rec domain.MatchRecord, reserve []domain.Reservation) error
}

// Catalog reads and moves catalog entries.
type Catalog interface {
	GetEntry(ctx context.Context, id string) (*domain.CatalogEntry, error)
	ListAvailable(ctx context.Context, kind domain.EntryKind, limit int) ([]domain.CatalogEntry, error)
	// Release returns an entry held by matchID to available. Entries not held
	// by matchID are left alone.
	Release(ctx context.Context, entryID, matchID string) error
	// Consume marks an entry held by matchID as matched. Repeating it is a no-op.
	Consume(ctx context.Context, entryID, matchID string) error
}

// Materializer creates the artifacts of a confirmed match. Both calls are
// idempotent on MatchID and return the stored value.
type Materializer interface {
	CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error)
	CreateChat(ctx context.Context, c domain.ChatSession) (domain.ChatSession, error)
}

// Store is everything the services need.
type Store interface {
	Matches
	Proposals
	Catalog
	Materializer
}
