package handlers

import (
	"context"

	"service-courier-match/internal/domain"
	"service-courier-match/internal/service/match"
)

type matchUsecase interface {
	Decide(ctx context.Context, in match.DecideInput) (match.Result, error)
	FindByOrder(ctx context.Context, orderID, partyID string) (domain.MatchRecord, error)
}

// NewMatchUsecase wires the coordinator into a matchUsecase.
func NewMatchUsecase(svc *match.Service) matchUsecase {
	return svc
}

type entryReader interface {
	GetEntry(ctx context.Context, id string) (*domain.CatalogEntry, error)
}
