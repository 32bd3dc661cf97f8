// Package inmem is a process-local implementation of the match storage ports.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/ports/matchstore"
)

// Store keeps catalog entries, match records, orders and chats in maps
// guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	entries map[string]domain.CatalogEntry
	matches map[string]domain.MatchRecord
	orders  map[string]domain.Order
	chats   map[string]domain.ChatSession
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[string]domain.CatalogEntry),
		matches: make(map[string]domain.MatchRecord),
		orders:  make(map[string]domain.Order),
		chats:   make(map[string]domain.ChatSession),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PutEntry inserts or replaces a catalog entry. A zero version becomes 1.
func (s *Store) PutEntry(e domain.CatalogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Version == 0 {
		e.Version = 1
	}
	if e.Availability == "" {
		e.Availability = domain.AvailabilityAvailable
	}
	s.entries[e.ID] = e
}

// DeleteEntry removes a catalog entry.
func (s *Store) DeleteEntry(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// GetEntry implements matchstore.Catalog.
func (s *Store) GetEntry(_ context.Context, id string) (*domain.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// ListAvailable implements matchstore.Catalog.
func (s *Store) ListAvailable(_ context.Context, kind domain.EntryKind, limit int) ([]domain.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CatalogEntry, 0)
	for _, e := range s.entries {
		if e.Kind == kind && e.Availability == domain.AvailabilityAvailable {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Release implements matchstore.Catalog.
func (s *Store) Release(_ context.Context, entryID, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok || e.HeldBy != matchID || e.Availability != domain.AvailabilityReserved {
		return nil
	}
	e.Availability = domain.AvailabilityAvailable
	e.HeldBy = ""
	e.Version++
	e.UpdatedAt = s.now()
	s.entries[entryID] = e
	return nil
}

// Consume implements matchstore.Catalog.
func (s *Store) Consume(_ context.Context, entryID, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok {
		return fmt.Errorf("entry %s: %w", entryID, apperr.ErrNotFound)
	}
	if e.HeldBy != matchID {
		return fmt.Errorf("entry %s held by %q: %w", entryID, e.HeldBy, apperr.ErrConflict)
	}
	switch e.Availability {
	case domain.AvailabilityMatched:
		return nil
	case domain.AvailabilityReserved:
		e.Availability = domain.AvailabilityMatched
		e.Version++
		e.UpdatedAt = s.now()
		s.entries[entryID] = e
		return nil
	}
	return fmt.Errorf("entry %s is %s: %w", entryID, e.Availability, apperr.ErrConflict)
}

// CreatePending implements matchstore.Proposals.
func (s *Store) CreatePending(_ context.Context, rec domain.MatchRecord, reserve []domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[rec.ID]; ok {
		return fmt.Errorf("match %s exists: %w", rec.ID, apperr.ErrConflict)
	}
	for _, m := range s.matches {
		if m.Status != domain.MatchPending {
			continue
		}
		if m.PairKey() == rec.PairKey() || m.References(rec.OrderID) || m.References(rec.MatchedOrderID) {
			return fmt.Errorf("pending match %s overlaps: %w", m.ID, apperr.ErrConflict)
		}
	}
	for _, r := range reserve {
		e, ok := s.entries[r.EntryID]
		if !ok || e.Availability != domain.AvailabilityAvailable || e.Version != r.Version {
			return fmt.Errorf("entry %s: %w", r.EntryID, apperr.ErrCapacityUnavailable)
		}
	}

	now := s.now()
	for _, r := range reserve {
		e := s.entries[r.EntryID]
		e.Availability = domain.AvailabilityReserved
		e.HeldBy = rec.ID
		e.Version++
		e.UpdatedAt = now
		s.entries[r.EntryID] = e
	}
	s.matches[rec.ID] = rec.Clone()
	return nil
}

// Get implements matchstore.Matches.
func (s *Store) Get(_ context.Context, id string) (*domain.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, nil
	}
	out := m.Clone()
	return &out, nil
}

// FindByOrder implements matchstore.Matches.
func (s *Store) FindByOrder(_ context.Context, orderID string) (*domain.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *domain.MatchRecord
	for _, m := range s.matches {
		if !m.References(orderID) {
			continue
		}
		if best == nil || better(m, *best) {
			c := m.Clone()
			best = &c
		}
	}
	return best, nil
}

func better(a, b domain.MatchRecord) bool {
	ap, bp := a.Status == domain.MatchPending, b.Status == domain.MatchPending
	if ap != bp {
		return ap
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// CompareAndSwap implements matchstore.Matches.
func (s *Store) CompareAndSwap(_ context.Context, expectedVersion int64, next domain.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.matches[next.ID]
	if !ok {
		return fmt.Errorf("match %s: %w", next.ID, apperr.ErrNotFound)
	}
	if cur.Version != expectedVersion || next.Version != expectedVersion+1 {
		return fmt.Errorf("match %s at %d: %w", next.ID, cur.Version, apperr.ErrVersionConflict)
	}
	s.matches[next.ID] = next.Clone()
	return nil
}

// ListExpired implements matchstore.Matches.
func (s *Store) ListExpired(_ context.Context, now time.Time, limit int) ([]domain.MatchRecord, error) {
	return s.list(limit, func(m domain.MatchRecord) bool { return m.Overdue(now) }), nil
}

// ListUnsettled implements matchstore.Matches.
func (s *Store) ListUnsettled(_ context.Context, olderThan time.Time, limit int) ([]domain.MatchRecord, error) {
	return s.list(limit, func(m domain.MatchRecord) bool {
		return m.Status.Terminal() && !m.Settled && m.Resolution != nil && m.Resolution.ResolvedAt.Before(olderThan)
	}), nil
}

func (s *Store) list(limit int, keep func(domain.MatchRecord) bool) []domain.MatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MatchRecord, 0)
	for _, m := range s.matches {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CreateOrder implements matchstore.Materializer.
func (s *Store) CreateOrder(_ context.Context, o domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.orders[o.MatchID]; ok {
		return cur, nil
	}
	s.orders[o.MatchID] = o
	return o, nil
}

// CreateChat implements matchstore.Materializer.
func (s *Store) CreateChat(_ context.Context, c domain.ChatSession) (domain.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.chats[c.MatchID]; ok {
		return cur, nil
	}
	c.Participants = append([]string(nil), c.Participants...)
	s.chats[c.MatchID] = c
	return c, nil
}

// Orders returns every materialized order.
func (s *Store) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

// Chats returns every materialized chat session.
func (s *Store) Chats() []domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatSession, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, c)
	}
	return out
}

var _ matchstore.Store = (*Store)(nil)
