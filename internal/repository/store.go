package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"service-courier-match/internal/ports/matchstore"
)

// Store groups the Postgres repositories behind matchstore.Store.
type Store struct {
	*MatchRepo
	*CatalogRepo
	*OrderRepo
}

var _ matchstore.Store = (*Store)(nil)

// NewStore returns a Store sharing one pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		MatchRepo:   NewMatchRepo(db),
		CatalogRepo: NewCatalogRepo(db),
		OrderRepo:   NewOrderRepo(db),
	}
}
