package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// MatchStatus is the state of a MatchRecord.
	MatchStatus string
	// Decision is a party's answer to a proposed match.
	Decision string
)

// List of match statuses
const (
	MatchPending   MatchStatus = "pending_confirmation"
	MatchConfirmed MatchStatus = "confirmed"
	MatchRejected  MatchStatus = "rejected"
	MatchExpired   MatchStatus = "expired"
	MatchCancelled MatchStatus = "cancelled"
)

// List of party decisions. A party without an entry has not decided yet.
const (
	DecisionConfirm Decision = "confirm"
	DecisionReject  Decision = "reject"
)

// Resolution reasons recorded on terminal transitions.
const (
	ReasonRejected  = "rejected"
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

// ErrInvalidTransition is returned when a status change is not allowed by the
// match state machine.
var ErrInvalidTransition = errors.New("invalid match transition")

var allowedMatchStatuses = [...]MatchStatus{
	MatchPending, MatchConfirmed, MatchRejected, MatchExpired, MatchCancelled,
}

// Valid checks if the MatchStatus is valid
func (s MatchStatus) Valid() bool {
	for _, v := range allowedMatchStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s MatchStatus) Terminal() bool {
	return s.Valid() && s != MatchPending
}

// Valid checks if the Decision is valid
func (d Decision) Valid() bool {
	return d == DecisionConfirm || d == DecisionReject
}

// Confirmation is one party's recorded decision.
type Confirmation struct {
	Decision       Decision  `json:"decision"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	At             time.Time `json:"at"`
}

// Resolution is written once, on the terminal transition.
type Resolution struct {
	OrderID    string    `json:"order_id,omitempty"`
	ChatID     string    `json:"chat_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Note       string    `json:"note,omitempty"`
	ResolvedBy string    `json:"resolved_by,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// MatchRecord tracks one proposed pairing of a request with a flight.
//
// OrderID is the initiating (canonically smaller) order id and MatchedOrderID
// its counterpart. Confirmations is keyed by party id.
type MatchRecord struct {
	ID             string
	OrderID        string
	MatchedOrderID string
	RequestID      string
	FlightID       string
	RequestOwner   string
	FlightOwner    string
	Status         MatchStatus
	Confirmations  map[string]Confirmation
	CreatedAt      time.Time
	Deadline       time.Time
	Resolution     *Resolution
	Settled        bool
	Version        int64
}

// CanonicalPair orders two order ids so that mirrored proposals share a key.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// NewMatchRecord builds a pending record for a request/flight pair.
func NewMatchRecord(id string, req, flight CatalogEntry, now time.Time, window time.Duration) MatchRecord {
	first, second := CanonicalPair(req.ID, flight.ID)
	return MatchRecord{
		ID:             id,
		OrderID:        first,
		MatchedOrderID: second,
		RequestID:      req.ID,
		FlightID:       flight.ID,
		RequestOwner:   req.OwnerID,
		FlightOwner:    flight.OwnerID,
		Status:         MatchPending,
		Confirmations:  map[string]Confirmation{},
		CreatedAt:      now,
		Deadline:       now.Add(window),
		Version:        1,
	}
}

// PairKey is the canonical create-if-absent key of the pair.
func (m MatchRecord) PairKey() string {
	return m.OrderID + "|" + m.MatchedOrderID
}

// Parties returns the request owner and the flight owner.
func (m MatchRecord) Parties() []string {
	return []string{m.RequestOwner, m.FlightOwner}
}

// IsParty reports whether partyID is one of the two legitimate parties.
func (m MatchRecord) IsParty(partyID string) bool {
	return partyID != "" && (partyID == m.RequestOwner || partyID == m.FlightOwner)
}

// References reports whether orderID is one side of the match.
func (m MatchRecord) References(orderID string) bool {
	return orderID != "" && (orderID == m.OrderID || orderID == m.MatchedOrderID)
}

// OrderOf returns the catalog entry owned by partyID.
func (m MatchRecord) OrderOf(partyID string) string {
	switch partyID {
	case m.RequestOwner:
		return m.RequestID
	case m.FlightOwner:
		return m.FlightID
	}
	return ""
}

// HasConfirmed reports whether partyID holds a confirm decision.
func (m MatchRecord) HasConfirmed(partyID string) bool {
	c, ok := m.Confirmations[partyID]
	return ok && c.Decision == DecisionConfirm
}

// BothConfirmed reports whether every party holds a confirm decision.
func (m MatchRecord) BothConfirmed() bool {
	return m.HasConfirmed(m.RequestOwner) && m.HasConfirmed(m.FlightOwner)
}

// Overdue reports whether a pending record is past its deadline.
func (m MatchRecord) Overdue(now time.Time) bool {
	return m.Status == MatchPending && now.After(m.Deadline)
}

// Clone returns a deep copy safe to mutate.
func (m MatchRecord) Clone() MatchRecord {
	out := m
	out.Confirmations = make(map[string]Confirmation, len(m.Confirmations))
	for k, v := range m.Confirmations {
		out.Confirmations[k] = v
	}
	if m.Resolution != nil {
		r := *m.Resolution
		out.Resolution = &r
	}
	return out
}

// WithDecision returns a copy with partyID's decision recorded.
func (m MatchRecord) WithDecision(partyID string, c Confirmation) MatchRecord {
	out := m.Clone()
	out.Confirmations[partyID] = c
	return out
}

// Resolve returns a copy moved to the terminal status to.
func (m MatchRecord) Resolve(to MatchStatus, res Resolution) (MatchRecord, error) {
	if m.Status.Terminal() {
		return MatchRecord{}, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, m.Status)
	}
	if !to.Terminal() {
		return MatchRecord{}, fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, to)
	}
	if to == MatchConfirmed && !m.BothConfirmed() {
		return MatchRecord{}, fmt.Errorf("%w: confirmed needs both parties", ErrInvalidTransition)
	}
	out := m.Clone()
	out.Status = to
	out.Resolution = &res
	out.Settled = false
	return out, nil
}

// ResolutionOrEmpty never returns nil.
func (m MatchRecord) ResolutionOrEmpty() Resolution {
	if m.Resolution == nil {
		return Resolution{}
	}
	return *m.Resolution
}

// IdempotencyKey is the stable key a party uses for an action on a match.
func IdempotencyKey(matchID, partyID string, d Decision) string {
	return matchID + ":" + partyID + ":" + string(d)
}

// ParseIdempotencyKey splits a key built by IdempotencyKey. ok is false for
// keys of any other shape.
func ParseIdempotencyKey(key string) (matchID, partyID string, d Decision, ok bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	d = Decision(parts[2])
	if !d.Valid() {
		return "", "", "", false
	}
	return parts[0], parts[1], d, true
}
