package events

import (
	"context"
	"sync"
)

const defaultBuffer = 8

// Broker is an in-process Channel.
type Broker struct {
	mu     sync.Mutex
	latest map[string]Event
	subs   map[string]map[*brokerSub]struct{}
	buffer int
}

type brokerSub struct {
	ch chan Event
}

// NewBroker returns an empty Broker. buffer is the per-subscriber queue size.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		latest: make(map[string]Event),
		subs:   make(map[string]map[*brokerSub]struct{}),
		buffer: buffer,
	}
}

// Publish implements Publisher.
func (b *Broker) Publish(ctx context.Context, e Event) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.latest[e.OrderID]; ok && !e.Supersedes(prev) {
		return false, nil
	}
	b.latest[e.OrderID] = e
	for s := range b.subs[e.OrderID] {
		offer(s.ch, e)
	}
	return true, nil
}

// Latest implements Channel.
func (b *Broker) Latest(_ context.Context, orderID string) (Event, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.latest[orderID]
	return e, ok, nil
}

// Subscribe implements Subscriber.
func (b *Broker) Subscribe(ctx context.Context, orderID string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &brokerSub{ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	set, ok := b.subs[orderID]
	if !ok {
		set = make(map[*brokerSub]struct{})
		b.subs[orderID] = set
	}
	set[s] = struct{}{}
	if e, ok := b.latest[orderID]; ok {
		offer(s.ch, e)
	}
	b.mu.Unlock()

	sub := NewSubscription(s.ch, func() { b.remove(orderID, s) })
	context.AfterFunc(ctx, sub.Close)
	return sub, nil
}

func (b *Broker) remove(orderID string, s *brokerSub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[orderID]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(b.subs, orderID)
	}
	close(s.ch)
}

var _ Channel = (*Broker)(nil)
