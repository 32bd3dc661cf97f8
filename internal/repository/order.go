package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-courier-match/internal/domain"
)

// OrderRepo stores orders and chat sessions materialized from confirmed matches.
type OrderRepo struct{ db *pgxpool.Pool }

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(db *pgxpool.Pool) *OrderRepo { return &OrderRepo{db: db} }

// CreateOrder - inserts the order of a match once and returns the stored row.
func (r *OrderRepo) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO match_orders (id, match_id, request_id, flight_id, chat_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id) DO NOTHING
	`, o.ID, o.MatchID, o.RequestID, o.FlightID, o.ChatID, o.CreatedAt); err != nil {
		return domain.Order{}, fmt.Errorf("insert order for match %q: %w", o.MatchID, err)
	}

	var out domain.Order
	err := r.db.QueryRow(ctx, `
		SELECT id, match_id, request_id, flight_id, chat_id, created_at
		FROM match_orders WHERE match_id = $1
	`, o.MatchID).Scan(&out.ID, &out.MatchID, &out.RequestID, &out.FlightID, &out.ChatID, &out.CreatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order for match %q: %w", o.MatchID, err)
	}
	return out, nil
}

// CreateChat - inserts the chat session of a match once and returns the stored row.
func (r *OrderRepo) CreateChat(ctx context.Context, c domain.ChatSession) (domain.ChatSession, error) {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO chat_sessions (id, match_id, participants, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id) DO NOTHING
	`, c.ID, c.MatchID, c.Participants, c.CreatedAt); err != nil {
		return domain.ChatSession{}, fmt.Errorf("insert chat for match %q: %w", c.MatchID, err)
	}

	var out domain.ChatSession
	err := r.db.QueryRow(ctx, `
		SELECT id, match_id, participants, created_at
		FROM chat_sessions WHERE match_id = $1
	`, c.MatchID).Scan(&out.ID, &out.MatchID, &out.Participants, &out.CreatedAt)
	if err != nil {
		return domain.ChatSession{}, fmt.Errorf("get chat for match %q: %w", c.MatchID, err)
	}
	return out, nil
}
