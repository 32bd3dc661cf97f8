package match

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/logx"
)

// Confirm records partyID's confirmation of matchID. When the other party has
// already confirmed, the record moves to confirmed and the order and chat are
// created exactly once.
func (s *Service) Confirm(ctx context.Context, matchID, partyID, idempotencyKey string) (Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if strings.TrimSpace(matchID) == "" || strings.TrimSpace(partyID) == "" {
		return Result{}, fmt.Errorf("match id and party id are required: %w", apperr.ErrInvalid)
	}
	if idempotencyKey == "" {
		idempotencyKey = domain.IdempotencyKey(matchID, partyID, domain.DecisionConfirm)
	}
	log := s.logger.With(logx.MatchID(matchID), logx.PartyID(partyID))

	// Record the confirmation.
	rec, _, err := s.update(ctx, matchID, func(cur domain.MatchRecord) (*domain.MatchRecord, error) {
		if !cur.IsParty(partyID) {
			return nil, fmt.Errorf("party %s on match %s: %w", partyID, matchID, apperr.ErrForbidden)
		}
		if cur.Status.Terminal() || cur.HasConfirmed(partyID) {
			return nil, nil
		}
		next := cur.WithDecision(partyID, domain.Confirmation{
			Decision:       domain.DecisionConfirm,
			IdempotencyKey: idempotencyKey,
			At:             s.now().UTC(),
		})
		return &next, nil
	})
	if err != nil {
		return Result{}, err
	}
	if rec.Status.Terminal() {
		return resultOf(rec, partyID, true), nil
	}
	if !rec.BothConfirmed() {
		log.Info("match confirmation recorded", logx.String("event", "match_confirmation_recorded"))
		return resultOf(rec, partyID, false), nil
	}

	// Both parties are in: move to confirmed. Only the caller whose write
	// lands materializes.
	rec, wrote, err := s.update(ctx, matchID, func(cur domain.MatchRecord) (*domain.MatchRecord, error) {
		if cur.Status != domain.MatchPending || !cur.BothConfirmed() {
			return nil, nil
		}
		next, err := cur.Resolve(domain.MatchConfirmed, domain.Resolution{
			OrderID:    domain.DeriveOrderID(cur.ID),
			ChatID:     domain.DeriveChatID(cur.RequestID, cur.FlightID),
			ResolvedBy: partyID,
			ResolvedAt: s.now().UTC(),
		})
		if err != nil {
			return nil, err
		}
		return &next, nil
	})
	if err != nil {
		return Result{}, err
	}
	if wrote {
		s.transitioned(ctx, rec)
	}
	return resultOf(rec, partyID, !wrote), nil
}

// Reject ends matchID as rejected on partyID's behalf, regardless of the
// other party's decision.
func (s *Service) Reject(ctx context.Context, matchID, partyID, reason, idempotencyKey string) (Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if strings.TrimSpace(matchID) == "" || strings.TrimSpace(partyID) == "" {
		return Result{}, fmt.Errorf("match id and party id are required: %w", apperr.ErrInvalid)
	}
	if idempotencyKey == "" {
		idempotencyKey = domain.IdempotencyKey(matchID, partyID, domain.DecisionReject)
	}

	rec, wrote, err := s.update(ctx, matchID, func(cur domain.MatchRecord) (*domain.MatchRecord, error) {
		if !cur.IsParty(partyID) {
			return nil, fmt.Errorf("party %s on match %s: %w", partyID, matchID, apperr.ErrForbidden)
		}
		if cur.Status.Terminal() {
			return nil, nil
		}
		now := s.now().UTC()
		decided := cur.WithDecision(partyID, domain.Confirmation{
			Decision:       domain.DecisionReject,
			IdempotencyKey: idempotencyKey,
			At:             now,
		})
		next, err := decided.Resolve(domain.MatchRejected, domain.Resolution{
			Reason:     domain.ReasonRejected,
			Note:       reason,
			ResolvedBy: partyID,
			ResolvedAt: now,
		})
		if err != nil {
			return nil, err
		}
		return &next, nil
	})
	if err != nil {
		return Result{}, err
	}
	if wrote {
		s.transitioned(ctx, rec)
	}
	return resultOf(rec, partyID, !wrote), nil
}

// Cancel ends a pending matchID as cancelled. Terminal records are returned
// unchanged.
func (s *Service) Cancel(ctx context.Context, matchID, reason string) (Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if strings.TrimSpace(matchID) == "" {
		return Result{}, fmt.Errorf("match id is required: %w", apperr.ErrInvalid)
	}
	return s.cancel(ctx, matchID, reason, "operator")
}

// CancelByOrder cancels the pending match referencing orderID, if any. It is
// used when a catalog entry is withdrawn.
func (s *Service) CancelByOrder(ctx context.Context, orderID, reason string) (Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec, err := s.matches.FindByOrder(ctx, orderID)
	if err != nil {
		return Result{}, fmt.Errorf("find match by order %s: %w", orderID, err)
	}
	if rec == nil {
		return Result{}, fmt.Errorf("match for order %s: %w", orderID, apperr.ErrNotFound)
	}
	if rec.Status.Terminal() {
		return resultOf(*rec, "", true), nil
	}
	return s.cancel(ctx, rec.ID, reason, "catalog")
}

func (s *Service) cancel(ctx context.Context, matchID, reason, actor string) (Result, error) {
	rec, wrote, err := s.update(ctx, matchID, func(cur domain.MatchRecord) (*domain.MatchRecord, error) {
		if cur.Status.Terminal() {
			return nil, nil
		}
		next, err := cur.Resolve(domain.MatchCancelled, domain.Resolution{
			Reason:     domain.ReasonCancelled,
			Note:       reason,
			ResolvedBy: actor,
			ResolvedAt: s.now().UTC(),
		})
		if err != nil {
			return nil, err
		}
		return &next, nil
	})
	if err != nil {
		return Result{}, err
	}
	if wrote {
		s.transitioned(ctx, rec)
	}
	return resultOf(rec, "", !wrote), nil
}

// DecideInput is a party decision addressed by match id, order id or both.
type DecideInput struct {
	MatchID        string
	OrderID        string
	PartyID        string
	Action         domain.Decision
	Reason         string
	IdempotencyKey string
}

// Decide resolves the target match and applies the decision.
//
// A structured idempotency key (match:party:action) pins the match: a retry
// never lands on a match proposed after the one the key was minted for.
func (s *Service) Decide(ctx context.Context, in DecideInput) (Result, error) {
	if !in.Action.Valid() {
		return Result{}, fmt.Errorf("action %q: %w", in.Action, apperr.ErrInvalid)
	}
	if in.MatchID == "" && in.OrderID == "" {
		return Result{}, fmt.Errorf("match id or order id is required: %w", apperr.ErrInvalid)
	}

	matchID := in.MatchID
	if keyMatch, keyParty, keyAction, ok := domain.ParseIdempotencyKey(in.IdempotencyKey); ok {
		if keyParty != in.PartyID || keyAction != in.Action {
			return Result{}, fmt.Errorf("idempotency key %q reused for %s by %s: %w",
				in.IdempotencyKey, in.Action, in.PartyID, apperr.ErrConflict)
		}
		if matchID != "" && matchID != keyMatch {
			return Result{}, fmt.Errorf("idempotency key %q names match %s, not %s: %w",
				in.IdempotencyKey, keyMatch, matchID, apperr.ErrConflict)
		}
		matchID = keyMatch
	}

	if in.OrderID != "" {
		var (
			rec *domain.MatchRecord
			err error
		)
		if matchID == "" {
			rec, err = s.matches.FindByOrder(ctx, in.OrderID)
		} else {
			rec, err = s.matches.Get(ctx, matchID)
		}
		if err != nil {
			return Result{}, fmt.Errorf("resolve match: %w", err)
		}
		if rec == nil || !rec.References(in.OrderID) {
			return Result{}, fmt.Errorf("match for order %s: %w", in.OrderID, apperr.ErrNotFound)
		}
		matchID = rec.ID
	}

	if in.Action == domain.DecisionReject {
		return s.Reject(ctx, matchID, in.PartyID, in.Reason, in.IdempotencyKey)
	}
	return s.Confirm(ctx, matchID, in.PartyID, in.IdempotencyKey)
}

// Get returns the record matchID.
func (s *Service) Get(ctx context.Context, matchID string) (domain.MatchRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return domain.MatchRecord{}, fmt.Errorf("get match %s: %w", matchID, err)
	}
	if rec == nil {
		return domain.MatchRecord{}, fmt.Errorf("match %s: %w", matchID, apperr.ErrNotFound)
	}
	return *rec, nil
}

// FindByOrder returns the current match of orderID. A non-empty partyID must
// be one of its parties.
func (s *Service) FindByOrder(ctx context.Context, orderID, partyID string) (domain.MatchRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec, err := s.matches.FindByOrder(ctx, orderID)
	if err != nil {
		return domain.MatchRecord{}, fmt.Errorf("find match by order %s: %w", orderID, err)
	}
	if rec == nil {
		return domain.MatchRecord{}, fmt.Errorf("match for order %s: %w", orderID, apperr.ErrNotFound)
	}
	if partyID != "" && !rec.IsParty(partyID) {
		return domain.MatchRecord{}, fmt.Errorf("party %s on order %s: %w", partyID, orderID, apperr.ErrForbidden)
	}
	return *rec, nil
}

// transitioned runs after this call wrote a terminal status. Side effects
// that fail are left for the sweeper.
func (s *Service) transitioned(ctx context.Context, rec domain.MatchRecord) {
	s.metrics.Transition(string(rec.Status))
	s.logger.Info("match resolved",
		logx.String("event", "match_"+string(rec.Status)),
		logx.MatchID(rec.ID),
		logx.String("reason", rec.ResolutionOrEmpty().Reason),
	)
	if err := s.settle(ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("match settle deferred to sweeper",
			logx.MatchID(rec.ID),
			logx.Err(err),
		)
	}
}
