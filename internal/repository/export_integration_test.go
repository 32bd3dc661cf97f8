//go:build integration

package repository

import (
	"context"
	"fmt"

	"service-courier-match/internal/domain"
)

// UpsertEntry - inserts or replaces a catalog entry and returns its version.
func (r *CatalogRepo) UpsertEntry(ctx context.Context, e domain.CatalogEntry) (int64, error) {
	if e.Availability == "" {
		e.Availability = domain.AvailabilityAvailable
	}
	var version int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO catalog_entries (id, kind, owner_id, origin, destination, window_start, window_end,
			weight_kg, availability, held_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			origin = EXCLUDED.origin,
			destination = EXCLUDED.destination,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			weight_kg = EXCLUDED.weight_kg,
			version = catalog_entries.version + 1,
			updated_at = now()
		RETURNING version
	`, e.ID, string(e.Kind), e.OwnerID, e.Origin, e.Destination, e.WindowStart, e.WindowEnd,
		e.WeightKg, string(e.Availability), e.HeldBy).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("upsert catalog entry %q: %w", e.ID, err)
	}
	return version, nil
}

// CountOrders returns how many orders exist for a match.
func (r *OrderRepo) CountOrders(ctx context.Context, matchID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM match_orders WHERE match_id = $1`, matchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders for match %q: %w", matchID, err)
	}
	return n, nil
}
