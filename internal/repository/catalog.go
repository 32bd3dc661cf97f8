package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
)

const catalogColumns = `id, kind, owner_id, origin, destination, window_start, window_end,
	weight_kg, availability, held_by, version, updated_at`

// CatalogRepo represents catalog entries repository.
type CatalogRepo struct{ db *pgxpool.Pool }

// NewCatalogRepo creates a new CatalogRepo.
func NewCatalogRepo(db *pgxpool.Pool) *CatalogRepo { return &CatalogRepo{db: db} }

func scanEntry(row pgx.Row) (domain.CatalogEntry, error) {
	var e domain.CatalogEntry
	err := row.Scan(&e.ID, &e.Kind, &e.OwnerID, &e.Origin, &e.Destination, &e.WindowStart, &e.WindowEnd,
		&e.WeightKg, &e.Availability, &e.HeldBy, &e.Version, &e.UpdatedAt)
	return e, err
}

// GetEntry - returns catalog entry by its ID.
func (r *CatalogRepo) GetEntry(ctx context.Context, id string) (*domain.CatalogEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx,
		`SELECT `+catalogColumns+` FROM catalog_entries WHERE id=$1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get catalog entry %q: %w", id, err)
	}
	return &e, nil
}

// ListAvailable returns available entries of kind ordered by id.
func (r *CatalogRepo) ListAvailable(ctx context.Context, kind domain.EntryKind, limit int) ([]domain.CatalogEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_entries
		WHERE kind = $1 AND availability = 'available'
		ORDER BY id
		LIMIT $2
	`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("list available %s: %w", kind, err)
	}
	defer rows.Close()

	out := make([]domain.CatalogEntry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Release - returns an entry reserved by matchID to available.
func (r *CatalogRepo) Release(ctx context.Context, entryID, matchID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE catalog_entries
		SET availability = 'available', held_by = '', version = version + 1, updated_at = now()
		WHERE id = $1 AND held_by = $2 AND availability = 'reserved'
	`, entryID, matchID)
	if err != nil {
		return fmt.Errorf("release catalog entry %q: %w", entryID, err)
	}
	return nil
}

// Consume - marks an entry reserved by matchID as matched.
func (r *CatalogRepo) Consume(ctx context.Context, entryID, matchID string) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE catalog_entries
		SET availability = 'matched', version = version + 1, updated_at = now()
		WHERE id = $1 AND held_by = $2 AND availability = 'reserved'
	`, entryID, matchID)
	if err != nil {
		return fmt.Errorf("consume catalog entry %q: %w", entryID, err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	cur, err := r.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	switch {
	case cur == nil:
		return fmt.Errorf("catalog entry %q: %w", entryID, apperr.ErrNotFound)
	case cur.HeldBy == matchID && cur.Availability == domain.AvailabilityMatched:
		return nil
	default:
		return fmt.Errorf("catalog entry %q is %s for %q: %w", entryID, cur.Availability, cur.HeldBy, apperr.ErrConflict)
	}
}
