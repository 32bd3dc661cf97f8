package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
)

const matchColumns = `id, order_id, matched_order_id, request_id, flight_id, request_owner, flight_owner,
	status, confirmations, created_at, deadline, resolution, settled, version`

// MatchRepo represents match records repository.
type MatchRepo struct{ db *pgxpool.Pool }

// NewMatchRepo creates a new MatchRepo.
func NewMatchRepo(db *pgxpool.Pool) *MatchRepo { return &MatchRepo{db: db} }

func scanMatch(row pgx.Row) (domain.MatchRecord, error) {
	var (
		m        domain.MatchRecord
		confirms []byte
		res      []byte
	)
	err := row.Scan(&m.ID, &m.OrderID, &m.MatchedOrderID, &m.RequestID, &m.FlightID, &m.RequestOwner,
		&m.FlightOwner, &m.Status, &confirms, &m.CreatedAt, &m.Deadline, &res, &m.Settled, &m.Version)
	if err != nil {
		return domain.MatchRecord{}, err
	}
	m.Confirmations = map[string]domain.Confirmation{}
	if len(confirms) > 0 {
		if err := json.Unmarshal(confirms, &m.Confirmations); err != nil {
			return domain.MatchRecord{}, fmt.Errorf("decode confirmations of %s: %w", m.ID, err)
		}
	}
	if len(res) > 0 {
		var r domain.Resolution
		if err := json.Unmarshal(res, &r); err != nil {
			return domain.MatchRecord{}, fmt.Errorf("decode resolution of %s: %w", m.ID, err)
		}
		m.Resolution = &r
	}
	return m, nil
}

func encodeMatch(m domain.MatchRecord) (confirms, res []byte, resolvedAt *time.Time, err error) {
	if m.Confirmations == nil {
		m.Confirmations = map[string]domain.Confirmation{}
	}
	if confirms, err = json.Marshal(m.Confirmations); err != nil {
		return nil, nil, nil, fmt.Errorf("encode confirmations: %w", err)
	}
	if m.Resolution != nil {
		if res, err = json.Marshal(m.Resolution); err != nil {
			return nil, nil, nil, fmt.Errorf("encode resolution: %w", err)
		}
		at := m.Resolution.ResolvedAt
		resolvedAt = &at
	}
	return confirms, res, resolvedAt, nil
}

// Get - returns match record by its ID.
func (r *MatchRepo) Get(ctx context.Context, id string) (*domain.MatchRecord, error) {
	m, err := scanMatch(r.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id=$1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get match %q: %w", id, err)
	}
	return &m, nil
}

// FindByOrder - returns the pending match of an order, else its latest one.
func (r *MatchRepo) FindByOrder(ctx context.Context, orderID string) (*domain.MatchRecord, error) {
	m, err := scanMatch(r.db.QueryRow(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE order_id = $1 OR matched_order_id = $1
		ORDER BY (status = 'pending_confirmation') DESC, created_at DESC, id DESC
		LIMIT 1
	`, orderID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find match by order %q: %w", orderID, err)
	}
	return &m, nil
}

// pendingIndexes keep at most one pending match per pair and per order.
var pendingIndexes = []string{
	"matches_pending_pair_uidx",
	"matches_pending_order_uidx",
	"matches_pending_matched_uidx",
}

// CreatePending - reserves both catalog entries and inserts the pending record in one transaction.
func (r *MatchRepo) CreatePending(ctx context.Context, rec domain.MatchRecord, reserve []domain.Reservation) error {
	confirms, _, _, err := encodeMatch(rec)
	if err != nil {
		return err
	}
	ordered := append([]domain.Reservation(nil), reserve...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].EntryID < ordered[j].EntryID })

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, res := range ordered {
			ct, err := tx.Exec(ctx, `
				UPDATE catalog_entries
				SET availability = 'reserved', held_by = $3, version = version + 1, updated_at = now()
				WHERE id = $1 AND version = $2 AND availability = 'available'
			`, res.EntryID, res.Version, rec.ID)
			if err != nil {
				return fmt.Errorf("reserve catalog entry %q: %w", res.EntryID, err)
			}
			if ct.RowsAffected() == 0 {
				return fmt.Errorf("catalog entry %q at version %d: %w", res.EntryID, res.Version, apperr.ErrCapacityUnavailable)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO matches (id, order_id, matched_order_id, pair_key, request_id, flight_id,
				request_owner, flight_owner, status, confirmations, created_at, deadline, settled, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false, $13)
		`, rec.ID, rec.OrderID, rec.MatchedOrderID, rec.PairKey(), rec.RequestID, rec.FlightID,
			rec.RequestOwner, rec.FlightOwner, string(rec.Status), confirms, rec.CreatedAt, rec.Deadline, rec.Version)
		if err != nil {
			if IsDuplicate(err, pendingIndexes...) {
				return fmt.Errorf("pending match for %s: %w", rec.PairKey(), apperr.ErrConflict)
			}
			return fmt.Errorf("insert match: %w", err)
		}
		return nil
	})
}

// CompareAndSwap - writes next if the stored version equals expectedVersion.
func (r *MatchRepo) CompareAndSwap(ctx context.Context, expectedVersion int64, next domain.MatchRecord) error {
	if next.Version != expectedVersion+1 {
		return fmt.Errorf("match %s: next version %d after %d: %w", next.ID, next.Version, expectedVersion, apperr.ErrInvalid)
	}
	confirms, res, resolvedAt, err := encodeMatch(next)
	if err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, `
		UPDATE matches
		SET status = $3, confirmations = $4, resolution = $5, resolved_at = $6, settled = $7, version = $8
		WHERE id = $1 AND version = $2
	`, next.ID, expectedVersion, string(next.Status), confirms, res, resolvedAt, next.Settled, next.Version)
	if err != nil {
		if IsRetryable(err) {
			return fmt.Errorf("match %q at version %d: %w", next.ID, expectedVersion, apperr.ErrVersionConflict)
		}
		return fmt.Errorf("update match %q: %w", next.ID, err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM matches WHERE id=$1)`, next.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check match %q: %w", next.ID, err)
	}
	if !exists {
		return fmt.Errorf("match %q: %w", next.ID, apperr.ErrNotFound)
	}
	return fmt.Errorf("match %q at version %d: %w", next.ID, expectedVersion, apperr.ErrVersionConflict)
}

// ListExpired - returns pending matches past their deadline.
func (r *MatchRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.MatchRecord, error) {
	return r.list(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE status = 'pending_confirmation' AND deadline < $1
		ORDER BY deadline
		LIMIT $2
	`, now, limit)
}

// ListUnsettled - returns terminal matches whose side effects are incomplete.
func (r *MatchRepo) ListUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]domain.MatchRecord, error) {
	return r.list(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE settled = false AND status <> 'pending_confirmation' AND resolved_at < $1
		ORDER BY resolved_at
		LIMIT $2
	`, olderThan, limit)
}

func (r *MatchRepo) list(ctx context.Context, q string, at time.Time, limit int) ([]domain.MatchRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, q, at, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	out := make([]domain.MatchRecord, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
