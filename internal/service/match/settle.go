package match

import (
	"context"
	"errors"
	"fmt"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/events"
	"service-courier-match/internal/logx"
)

// settle applies the side effects of a terminal record and marks it settled.
// Every step is idempotent, so a repeated settle after a crash is harmless.
func (s *Service) settle(ctx context.Context, rec domain.MatchRecord) error {
	if !rec.Status.Terminal() {
		return fmt.Errorf("settle %s in status %s: %w", rec.ID, rec.Status, domain.ErrInvalidTransition)
	}
	log := s.logger.With(logx.MatchID(rec.ID), logx.String("status", string(rec.Status)))

	var err error
	if rec.Status == domain.MatchConfirmed {
		err = s.materialize(ctx, rec)
	} else {
		err = s.release(ctx, rec)
	}
	if err != nil {
		return err
	}

	if err := s.publish(ctx, rec); err != nil {
		return err
	}
	if err := s.notifier.Notify(ctx, domain.NotificationFor(rec)); err != nil {
		return fmt.Errorf("notify %s: %w", rec.ID, err)
	}

	_, _, err = s.update(ctx, rec.ID, func(cur domain.MatchRecord) (*domain.MatchRecord, error) {
		if cur.Settled || !cur.Status.Terminal() {
			return nil, nil
		}
		next := cur.Clone()
		next.Settled = true
		return &next, nil
	})
	if err != nil {
		return fmt.Errorf("mark %s settled: %w", rec.ID, err)
	}
	log.Info("match settled", logx.String("event", "match_settled"))
	return nil
}

func (s *Service) materialize(ctx context.Context, rec domain.MatchRecord) error {
	res := rec.ResolutionOrEmpty()
	at := res.ResolvedAt

	order, err := s.materializer.CreateOrder(ctx, domain.Order{
		ID:        res.OrderID,
		MatchID:   rec.ID,
		RequestID: rec.RequestID,
		FlightID:  rec.FlightID,
		ChatID:    res.ChatID,
		CreatedAt: at,
	})
	if err != nil {
		return fmt.Errorf("create order for %s: %w", rec.ID, err)
	}
	if _, err := s.materializer.CreateChat(ctx, domain.ChatSession{
		ID:           res.ChatID,
		MatchID:      rec.ID,
		Participants: rec.Parties(),
		CreatedAt:    at,
	}); err != nil {
		return fmt.Errorf("create chat for %s: %w", rec.ID, err)
	}

	var errs []error
	for _, id := range []string{rec.RequestID, rec.FlightID} {
		err := s.catalog.Consume(ctx, id, rec.ID)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrNotFound):
			// The entry was withdrawn after confirmation; the order stands.
			s.logger.Warn("consumed entry is gone",
				logx.MatchID(rec.ID),
				logx.EntryID(id),
			)
		default:
			errs = append(errs, fmt.Errorf("consume %s: %w", id, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.Info("order created",
		logx.String("event", "order_created"),
		logx.MatchID(rec.ID),
		logx.OrderID(order.ID),
		logx.String("chat_id", order.ChatID),
	)
	return nil
}

func (s *Service) release(ctx context.Context, rec domain.MatchRecord) error {
	var errs []error
	for _, id := range []string{rec.RequestID, rec.FlightID} {
		if err := s.catalog.Release(ctx, id, rec.ID); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) publish(ctx context.Context, rec domain.MatchRecord) error {
	if s.publisher == nil {
		return nil
	}
	for _, e := range events.EventsFor(rec, s.now().UTC()) {
		applied, err := s.publisher.Publish(ctx, e)
		if err != nil {
			return fmt.Errorf("publish %s for %s: %w", e.Status, e.OrderID, err)
		}
		if applied {
			s.metrics.EventPublished(string(e.Status))
		}
	}
	return nil
}
