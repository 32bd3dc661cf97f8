package events

// Subscribers returns the number of open subscriptions on orderID.
func (b *Broker) Subscribers(orderID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[orderID])
}
