package agent

import (
	"sync"
	"time"

	"service-courier-match/internal/domain"
	"service-courier-match/internal/events"
)

// Phase is the client-side view of a match.
type Phase string

// List of phases
const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseWaiting   Phase = "waiting_on_counterpart"
	PhaseConfirmed Phase = "confirmed"
	PhaseRejected  Phase = "rejected"
	PhaseExpired   Phase = "expired"
	PhaseCancelled Phase = "cancelled"
)

// Terminal reports whether the match is over.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseConfirmed, PhaseRejected, PhaseExpired, PhaseCancelled:
		return true
	}
	return false
}

func phaseOf(status domain.MatchStatus) (Phase, bool) {
	switch status {
	case domain.MatchPending:
		return PhasePending, true
	case domain.MatchConfirmed:
		return PhaseConfirmed, true
	case domain.MatchRejected:
		return PhaseRejected, true
	case domain.MatchExpired:
		return PhaseExpired, true
	case domain.MatchCancelled:
		return PhaseCancelled, true
	}
	return "", false
}

// State is the current match of the watched order.
type State struct {
	Phase          Phase
	MatchID        string
	OrderID        string
	MatchedOrderID string
	ChatID         string
	Reason         string
	Deadline       time.Time
	Version        int64
	// AlreadyResolved is set when a decision found the match already over.
	AlreadyResolved bool
}

type seenKey struct {
	matchID string
	status  domain.MatchStatus
}

// SeenSet remembers which (match id, status) pairs were handled, so that a
// replay after reconnect does not prompt again.
type SeenSet struct {
	mu   sync.Mutex
	seen map[seenKey]struct{}
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[seenKey]struct{})}
}

// Add reports whether the pair was new.
func (s *SeenSet) Add(matchID string, status domain.MatchStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := seenKey{matchID: matchID, status: status}
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Has reports whether the pair was handled.
func (s *SeenSet) Has(matchID string, status domain.MatchStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[seenKey{matchID: matchID, status: status}]
	return ok
}

// Len returns the number of remembered pairs.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func stateFromEvent(e events.Event, phase Phase) State {
	return State{
		Phase:          phase,
		MatchID:        e.MatchID,
		OrderID:        e.OrderID,
		MatchedOrderID: e.MatchedOrderID,
		ChatID:         e.ChatID,
		Reason:         e.Reason,
		Deadline:       e.Deadline,
		Version:        e.Version,
	}
}
