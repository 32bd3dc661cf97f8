//go:generate mockgen -source=contracts.go -destination=catalogsync_mocks_test.go -package=catalogsync_test

package catalogsync

import (
	"context"

	"service-courier-match/internal/domain"
	"service-courier-match/internal/service/match"
)

// ProposerPort starts matching for a changed entry.
type ProposerPort interface {
	Propose(ctx context.Context, entryID string) (*domain.MatchRecord, error)
}

// CancelPort withdraws the pending match of a removed entry.
type CancelPort interface {
	CancelByOrder(ctx context.Context, orderID, reason string) (match.Result, error)
}
