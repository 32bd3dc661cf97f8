// Package agent is the client side of match confirmation: it follows the
// match channel of one order, prompts the user once per match and sends
// decisions with stable idempotency keys.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/events"
	"service-courier-match/internal/gateway/matchapi"
	"service-courier-match/internal/logx"
)

const updatesBuffer = 8

// ErrNoMatch is returned by decisions taken before any match arrived.
var ErrNoMatch = fmt.Errorf("no match to decide on: %w", apperr.ErrNotFound)

// Visible reports whether err should be shown to the user. Every other
// failure is retried or resolves through the channel.
func Visible(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrForbidden)
}

// Agent watches orders of one party.
type Agent struct {
	partyID  string
	feed     events.Subscriber
	gateway  Gateway
	prompter Prompter
	logger   logx.Logger
}

// New creates a new Agent. A nil prompter discards prompts.
func New(partyID string, feed events.Subscriber, gw Gateway, prompter Prompter, logger logx.Logger) *Agent {
	if prompter == nil {
		prompter = nopPrompter{}
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Agent{
		partyID:  partyID,
		feed:     feed,
		gateway:  gw,
		prompter: prompter,
		logger:   logger.With(logx.String("component", "match_agent"), logx.PartyID(partyID)),
	}
}

// Watch subscribes to the match channel of orderID. The handle lives until
// Close is called or ctx is done.
func (a *Agent) Watch(ctx context.Context, orderID string) (*Handle, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("watch: empty order id: %w", apperr.ErrInvalid)
	}
	ctx, cancel := context.WithCancel(ctx)
	sub, err := a.feed.Subscribe(ctx, orderID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch order %s: %w", orderID, err)
	}

	h := &Handle{
		agent:     a,
		orderID:   orderID,
		sub:       sub,
		cancel:    cancel,
		seen:      NewSeenSet(),
		dismissed: make(map[string]bool),
		updates:   make(chan State, updatesBuffer),
		done:      make(chan struct{}),
		state:     State{Phase: PhaseIdle, OrderID: orderID},
		logger:    a.logger.With(logx.OrderID(orderID)),
	}
	go h.loop()
	return h, nil
}

// Handle is one watched order.
type Handle struct {
	agent   *Agent
	orderID string
	sub     *events.Subscription
	cancel  context.CancelFunc
	logger  logx.Logger

	seen *SeenSet

	mu        sync.Mutex
	state     State
	last      *events.Event
	dismissed map[string]bool
	updates   chan State
	closed    bool

	done      chan struct{}
	closeOnce sync.Once
}

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Updates delivers every state change. Slow readers lose the oldest
// updates. The channel is closed when the handle ends.
func (h *Handle) Updates() <-chan State { return h.updates }

// Done is closed when the handle ends.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Close ends the subscription.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.cancel()
		h.sub.Close()
	})
}

// Dismiss hides the prompt of the current match. It has no server effect:
// the match stays pending until rejected or expired.
func (h *Handle) Dismiss() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.MatchID == "" || h.state.Phase.Terminal() {
		return
	}
	h.dismissed[h.state.MatchID] = true
	h.logger.Info("match prompt dismissed", logx.MatchID(h.state.MatchID))
}

// Dismissed reports whether the prompt of matchID was dismissed.
func (h *Handle) Dismissed(matchID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dismissed[matchID]
}

// Confirm accepts the current match.
func (h *Handle) Confirm(ctx context.Context) (State, error) {
	return h.decide(ctx, domain.DecisionConfirm, "")
}

// Reject declines the current match.
func (h *Handle) Reject(ctx context.Context, reason string) (State, error) {
	return h.decide(ctx, domain.DecisionReject, reason)
}

func (h *Handle) loop() {
	defer func() {
		h.mu.Lock()
		h.closed = true
		close(h.updates)
		h.mu.Unlock()
		close(h.done)
	}()
	for e := range h.sub.Events() {
		h.apply(e)
	}
}

func (h *Handle) apply(e events.Event) {
	phase, ok := phaseOf(e.Status)
	if !ok {
		h.logger.Warn("match event with unknown status", logx.String("status", string(e.Status)))
		return
	}
	if e.OrderID != "" && e.OrderID != h.orderID {
		return
	}

	h.mu.Lock()
	if h.last != nil && !e.Supersedes(*h.last) {
		h.mu.Unlock()
		return
	}
	last := e
	h.last = &last

	cur := h.state
	if cur.MatchID == e.MatchID && cur.Phase.Terminal() {
		// a decision reply got here first
		h.mu.Unlock()
		return
	}
	next := stateFromEvent(e, phase)
	if phase == PhasePending && cur.MatchID == e.MatchID && cur.Phase == PhaseWaiting {
		next.Phase = PhaseWaiting
	}
	h.setLocked(next)
	dismissed := h.dismissed[e.MatchID]
	h.mu.Unlock()

	h.logger.Debug("match event",
		logx.MatchID(e.MatchID),
		logx.String("status", string(e.Status)),
		logx.Int64("version", e.Version),
	)
	h.notify(next, dismissed)
}

func (h *Handle) decide(ctx context.Context, action domain.Decision, reason string) (State, error) {
	cur := h.State()
	if cur.MatchID == "" {
		return cur, ErrNoMatch
	}
	if cur.Phase.Terminal() {
		cur.AlreadyResolved = true
		return cur, nil
	}

	req := matchapi.DecisionRequest{
		OrderID:        h.orderID,
		MatchID:        cur.MatchID,
		Action:         action,
		Reason:         reason,
		IdempotencyKey: domain.IdempotencyKey(cur.MatchID, h.agent.partyID, action),
	}
	reply, err := h.agent.gateway.Decide(ctx, req)
	if err != nil {
		// the match is left as it was; only the coordinator resolves it
		h.logger.Warn("match decision failed",
			logx.MatchID(cur.MatchID),
			logx.String("action", string(action)),
			logx.Bool("visible", Visible(err)),
			logx.Err(err),
		)
		return h.State(), fmt.Errorf("%s match %s: %w", action, cur.MatchID, err)
	}
	return h.applyReply(cur.MatchID, *reply), nil
}

func (h *Handle) applyReply(matchID string, reply matchapi.DecisionReply) State {
	phase := PhasePending
	switch reply.Status {
	case "waiting_on_counterpart":
		phase = PhaseWaiting
	default:
		if p, ok := phaseOf(domain.MatchStatus(reply.Status)); ok {
			phase = p
		}
	}
	if reply.MatchID != "" {
		matchID = reply.MatchID
	}

	h.mu.Lock()
	cur := h.state
	if cur.MatchID != matchID {
		// a newer match replaced the one decided on
		h.mu.Unlock()
		return State{Phase: phase, MatchID: matchID, OrderID: h.orderID, ChatID: reply.ChatID, Reason: reply.Reason, AlreadyResolved: reply.AlreadyResolved}
	}
	next := cur
	next.AlreadyResolved = reply.AlreadyResolved
	if !cur.Phase.Terminal() {
		next.Phase = phase
		next.ChatID = reply.ChatID
		next.Reason = reply.Reason
	}
	h.setLocked(next)
	dismissed := h.dismissed[matchID]
	h.mu.Unlock()

	h.notify(next, dismissed)
	return next
}

// setLocked stores s and offers it to Updates. h.mu must be held.
func (h *Handle) setLocked(s State) {
	h.state = s
	if h.closed {
		return
	}
	for {
		select {
		case h.updates <- s:
			return
		default:
		}
		select {
		case <-h.updates:
		default:
		}
	}
}

// notify shows each (match, status) pair at most once.
func (h *Handle) notify(s State, dismissed bool) {
	switch {
	case s.Phase == PhasePending:
		if !dismissed && h.seen.Add(s.MatchID, domain.MatchPending) {
			h.agent.prompter.Prompt(s)
		}
	case s.Phase.Terminal():
		if h.seen.Add(s.MatchID, domain.MatchStatus(s.Phase)) {
			h.agent.prompter.Resolved(s)
		}
	}
}
