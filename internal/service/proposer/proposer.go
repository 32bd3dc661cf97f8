// Package proposer pairs available catalog entries into pending matches.
package proposer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/events"
	"service-courier-match/internal/logx"
)

// Config tunes the proposer.
type Config struct {
	ConfirmWindow    time.Duration
	MaxCandidates    int
	ScanLimit        int
	OperationTimeout time.Duration
}

// Service is the match proposer.
type Service struct {
	store     Store
	publisher events.Publisher
	scorer    Scorer
	metrics   Metrics
	logger    logx.Logger

	window           time.Duration
	maxCandidates    int
	scanLimit        int
	operationTimeout time.Duration

	newID func() string
	now   func() time.Time
}

// NewService constructs the proposer. A nil scorer means RouteWindowScorer.
func NewService(store Store, publisher events.Publisher, scorer Scorer, metrics Metrics, cfg Config, logger logx.Logger) *Service {
	if logger == nil {
		logger = logx.Nop()
	}
	if scorer == nil {
		scorer = RouteWindowScorer()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if cfg.ConfirmWindow <= 0 {
		cfg.ConfirmWindow = 15 * time.Minute
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 5
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = 500
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 3 * time.Second
	}
	return &Service{
		store:            store,
		publisher:        publisher,
		scorer:           scorer,
		metrics:          metrics,
		logger:           logger.With(logx.String("component", "match_proposer")),
		window:           cfg.ConfirmWindow,
		maxCandidates:    cfg.MaxCandidates,
		scanLimit:        cfg.ScanLimit,
		operationTimeout: cfg.OperationTimeout,
		newID:            uuid.NewString,
		now:              time.Now,
	}
}

type candidate struct {
	req, flight domain.CatalogEntry
	score       float64
}

// Propose looks for a counterpart of entryID and creates a pending match with
// the best one that can still be reserved. It returns nil, nil when the entry
// is not available or nothing fits.
func (s *Service) Propose(ctx context.Context, entryID string) (*domain.MatchRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", entryID, err)
	}
	if entry == nil {
		return nil, fmt.Errorf("entry %s: %w", entryID, apperr.ErrNotFound)
	}
	log := s.logger.With(logx.EntryID(entry.ID), logx.String("kind", string(entry.Kind)))
	if entry.Availability != domain.AvailabilityAvailable {
		log.Debug("entry not available, skipping", logx.String("availability", string(entry.Availability)))
		return nil, nil
	}

	others, err := s.store.ListAvailable(ctx, entry.Kind.Counterpart(), s.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("list %s entries: %w", entry.Kind.Counterpart(), err)
	}

	cands := s.rank(*entry, others)
	for _, c := range cands {
		rec := domain.NewMatchRecord(s.newID(), c.req, c.flight, s.now().UTC(), s.window)
		err := s.store.CreatePending(ctx, rec, []domain.Reservation{
			{EntryID: c.req.ID, Version: c.req.Version},
			{EntryID: c.flight.ID, Version: c.flight.Version},
		})
		switch {
		case err == nil:
			s.metrics.Proposal(ResultCreated)
			log.Info("match proposed",
				logx.String("event", "match_proposed"),
				logx.MatchID(rec.ID),
				logx.String("request_id", rec.RequestID),
				logx.String("flight_id", rec.FlightID),
			)
			s.publish(ctx, rec)
			return &rec, nil
		case errors.Is(err, apperr.ErrCapacityUnavailable), errors.Is(err, apperr.ErrConflict):
			s.metrics.Proposal(ResultContended)
			log.Info("candidate lost to a concurrent change",
				logx.String("request_id", c.req.ID),
				logx.String("flight_id", c.flight.ID),
				logx.Err(err),
			)
			if !errors.Is(err, apperr.ErrCapacityUnavailable) {
				continue
			}
			taken, err := s.entryTaken(ctx, *entry)
			if err != nil {
				return nil, err
			}
			if taken {
				log.Info("entry taken by a concurrent change, no more candidates")
				return nil, nil
			}
		default:
			return nil, fmt.Errorf("create match: %w", err)
		}
	}

	s.metrics.Proposal(ResultNone)
	log.Debug("no match proposed", logx.Int("candidates", len(cands)))
	return nil, nil
}

// entryTaken reports whether entry moved away from the version it was
// observed at, so no other candidate can reserve it either.
func (s *Service) entryTaken(ctx context.Context, entry domain.CatalogEntry) (bool, error) {
	cur, err := s.store.GetEntry(ctx, entry.ID)
	if err != nil {
		return false, fmt.Errorf("get entry %s: %w", entry.ID, err)
	}
	return cur == nil || cur.Availability != domain.AvailabilityAvailable || cur.Version != entry.Version, nil
}

// rank scores every counterpart of entry and keeps the best maxCandidates.
func (s *Service) rank(entry domain.CatalogEntry, others []domain.CatalogEntry) []candidate {
	out := make([]candidate, 0, len(others))
	for _, o := range others {
		if o.ID == entry.ID || o.OwnerID == entry.OwnerID {
			continue
		}
		req, flight := entry, o
		if entry.Kind == domain.KindFlight {
			req, flight = o, entry
		}
		score, ok := s.scorer.Score(req, flight)
		if !ok {
			continue
		}
		out = append(out, candidate{req: req, flight: flight, score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return pairID(out[i]) < pairID(out[j])
	})
	if len(out) > s.maxCandidates {
		out = out[:s.maxCandidates]
	}
	return out
}

func pairID(c candidate) string {
	return c.req.ID + "|" + c.flight.ID
}

// publish announces the pending match on both order keys. The record is
// already stored, so failures are only logged; clients also read it over HTTP.
func (s *Service) publish(ctx context.Context, rec domain.MatchRecord) {
	if s.publisher == nil {
		return
	}
	for _, e := range events.EventsFor(rec, s.now().UTC()) {
		applied, err := s.publisher.Publish(ctx, e)
		if err != nil {
			s.logger.Warn("publish pending match failed",
				logx.MatchID(rec.ID),
				logx.OrderID(e.OrderID),
				logx.Err(err),
			)
			continue
		}
		if applied {
			s.metrics.EventPublished(string(e.Status))
		}
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.operationTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.operationTimeout)
}
