package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_entries (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		owner_id     TEXT NOT NULL,
		origin       TEXT NOT NULL,
		destination  TEXT NOT NULL,
		window_start TIMESTAMPTZ NOT NULL,
		window_end   TIMESTAMPTZ NOT NULL,
		weight_kg    DOUBLE PRECISION NOT NULL,
		availability TEXT NOT NULL DEFAULT 'available',
		held_by      TEXT NOT NULL DEFAULT '',
		version      BIGINT NOT NULL DEFAULT 1,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS catalog_entries_available_idx
		ON catalog_entries (kind, id) WHERE availability = 'available'`,
	`CREATE TABLE IF NOT EXISTS matches (
		id               TEXT PRIMARY KEY,
		order_id         TEXT NOT NULL,
		matched_order_id TEXT NOT NULL,
		pair_key         TEXT NOT NULL,
		request_id       TEXT NOT NULL,
		flight_id        TEXT NOT NULL,
		request_owner    TEXT NOT NULL,
		flight_owner     TEXT NOT NULL,
		status           TEXT NOT NULL,
		confirmations    JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at       TIMESTAMPTZ NOT NULL,
		deadline         TIMESTAMPTZ NOT NULL,
		resolution       JSONB,
		resolved_at      TIMESTAMPTZ,
		settled          BOOLEAN NOT NULL DEFAULT false,
		version          BIGINT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS matches_pending_pair_uidx
		ON matches (pair_key) WHERE status = 'pending_confirmation'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS matches_pending_order_uidx
		ON matches (order_id) WHERE status = 'pending_confirmation'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS matches_pending_matched_uidx
		ON matches (matched_order_id) WHERE status = 'pending_confirmation'`,
	`CREATE INDEX IF NOT EXISTS matches_order_idx ON matches (order_id)`,
	`CREATE INDEX IF NOT EXISTS matches_matched_order_idx ON matches (matched_order_id)`,
	`CREATE INDEX IF NOT EXISTS matches_deadline_idx
		ON matches (deadline) WHERE status = 'pending_confirmation'`,
	`CREATE INDEX IF NOT EXISTS matches_unsettled_idx
		ON matches (resolved_at) WHERE settled = false AND status <> 'pending_confirmation'`,
	`CREATE TABLE IF NOT EXISTS match_orders (
		id         TEXT PRIMARY KEY,
		match_id   TEXT NOT NULL UNIQUE,
		request_id TEXT NOT NULL,
		flight_id  TEXT NOT NULL,
		chat_id    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chat_sessions (
		id           TEXT PRIMARY KEY,
		match_id     TEXT NOT NULL UNIQUE,
		participants TEXT[] NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the tables and indexes used by the repositories.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
