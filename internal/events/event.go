// Package events carries match status changes to subscribers keyed by order id.
package events

import (
	"context"
	"sync"
	"time"

	"service-courier-match/internal/domain"
)

// Event is the payload written to an order key.
type Event struct {
	MatchID        string             `json:"match_id"`
	OrderID        string             `json:"order_id"`
	Status         domain.MatchStatus `json:"status"`
	MatchedOrderID string             `json:"matched_order_id"`
	ChatID         string             `json:"chat_id,omitempty"`
	Reason         string             `json:"reason,omitempty"`
	Deadline       time.Time          `json:"deadline"`
	MatchSeq       int64              `json:"match_seq"`
	Version        int64              `json:"version"`
	At             time.Time          `json:"at"`
}

// Supersedes reports whether e replaces prev under last-write-wins.
// Later matches win over earlier ones; within a match the higher version wins.
func (e Event) Supersedes(prev Event) bool {
	if e.MatchSeq != prev.MatchSeq {
		return e.MatchSeq > prev.MatchSeq
	}
	if e.MatchID != prev.MatchID {
		return e.MatchID > prev.MatchID
	}
	return e.Version > prev.Version
}

// EventsFor returns one event per order key of rec.
func EventsFor(rec domain.MatchRecord, at time.Time) []Event {
	res := rec.ResolutionOrEmpty()
	base := Event{
		MatchID:  rec.ID,
		Status:   rec.Status,
		ChatID:   res.ChatID,
		Reason:   res.Reason,
		Deadline: rec.Deadline,
		MatchSeq: rec.CreatedAt.UnixMicro(),
		Version:  rec.Version,
		At:       at,
	}
	first, second := base, base
	first.OrderID, first.MatchedOrderID = rec.OrderID, rec.MatchedOrderID
	second.OrderID, second.MatchedOrderID = rec.MatchedOrderID, rec.OrderID
	return []Event{first, second}
}

// Publisher writes events to their order key.
type Publisher interface {
	// Publish stores e as the latest value of e.OrderID and fans it out.
	// It reports false when a newer event is already stored.
	Publish(ctx context.Context, e Event) (bool, error)
}

// Subscriber opens subscriptions on an order key.
type Subscriber interface {
	// Subscribe delivers the latest stored event, if any, followed by every
	// later write. The subscription ends when ctx is done or Close is called.
	Subscribe(ctx context.Context, orderID string) (*Subscription, error)
}

// Channel is a per-key last-write-wins channel.
type Channel interface {
	Publisher
	Subscriber
	Latest(ctx context.Context, orderID string) (Event, bool, error)
}

// Subscription is a handle on one subscriber.
type Subscription struct {
	ch      <-chan Event
	closeFn func()
	once    sync.Once
}

// NewSubscription wraps ch. closeFn runs at most once.
func NewSubscription(ch <-chan Event, closeFn func()) *Subscription {
	return &Subscription{ch: ch, closeFn: closeFn}
}

// Events is closed after the subscription ends.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close ends the subscription.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.closeFn != nil {
			s.closeFn()
		}
	})
}

// offer puts e into ch without blocking, dropping the oldest buffered event
// when ch is full. Callers must be the only writer of ch.
func offer(ch chan Event, e Event) {
	for {
		select {
		case ch <- e:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
