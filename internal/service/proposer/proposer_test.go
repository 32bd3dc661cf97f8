package proposer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/events"
	"service-courier-match/internal/repository/inmem"
	"service-courier-match/internal/service/proposer"
	testlog "service-courier-match/internal/testutil"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type stubMetrics struct {
	mu        sync.Mutex
	proposals []string
	published []string
}

func (m *stubMetrics) Proposal(r string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals = append(m.proposals, r)
}

func (m *stubMetrics) EventPublished(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, s)
}

func (m *stubMetrics) Proposals() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.proposals...)
}

type stubStore struct {
	proposer.Store
	createFn func(ctx context.Context, rec domain.MatchRecord, reserve []domain.Reservation) error
	listFn   func(ctx context.Context, kind domain.EntryKind, limit int) ([]domain.CatalogEntry, error)
}

func (s *stubStore) CreatePending(ctx context.Context, rec domain.MatchRecord, reserve []domain.Reservation) error {
	if s.createFn == nil {
		return s.Store.CreatePending(ctx, rec, reserve)
	}
	return s.createFn(ctx, rec, reserve)
}

func (s *stubStore) ListAvailable(ctx context.Context, kind domain.EntryKind, limit int) ([]domain.CatalogEntry, error) {
	if s.listFn == nil {
		return s.Store.ListAvailable(ctx, kind, limit)
	}
	return s.listFn(ctx, kind, limit)
}

func request(id, owner string, kg float64) domain.CatalogEntry {
	return domain.CatalogEntry{
		ID: id, Kind: domain.KindRequest, OwnerID: owner,
		Origin: "TAS", Destination: "MOW",
		WindowStart: t0, WindowEnd: t0.Add(48 * time.Hour),
		WeightKg: kg,
	}
}

func flight(id, owner string, kg float64, departs time.Time) domain.CatalogEntry {
	return domain.CatalogEntry{
		ID: id, Kind: domain.KindFlight, OwnerID: owner,
		Origin: "TAS", Destination: "MOW",
		WindowStart: departs,
		WeightKg:    kg,
	}
}

func newProposer(store proposer.Store, pub events.Publisher, m proposer.Metrics) (*proposer.Service, *testlog.Recorder) {
	logs := testlog.New()
	svc := proposer.NewService(store, pub, nil, m, proposer.Config{
		ConfirmWindow: 10 * time.Minute,
		MaxCandidates: 3,
	}, logs.Logger())
	return svc, logs
}

func TestPropose_PicksTightestFit(t *testing.T) {
	t.Parallel()

	store := inmem.New()
	store.PutEntry(request("R", "alice", 2))
	store.PutEntry(flight("F1", "bob", 10, t0.Add(time.Hour)))
	store.PutEntry(flight("F2", "carol", 3, t0.Add(2*time.Hour)))
	store.PutEntry(flight("F3", "dave", 2.5, t0.Add(72*time.Hour)))
	store.PutEntry(flight("F4", "alice", 2, t0.Add(time.Hour)))
	broker := events.NewBroker(4)
	metrics := &stubMetrics{}
	svc, logs := newProposer(store, broker, metrics)
	ctx := context.Background()

	rec, err := svc.Propose(ctx, "R")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "F2", rec.FlightID)
	assert.Equal(t, "R", rec.RequestID)
	assert.Equal(t, "F2", rec.OrderID)
	assert.Equal(t, "R", rec.MatchedOrderID)
	assert.Equal(t, domain.MatchPending, rec.Status)
	assert.Equal(t, rec.CreatedAt.Add(10*time.Minute), rec.Deadline)

	for _, id := range []string{"R", "F2"} {
		e, err := store.GetEntry(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.AvailabilityReserved, e.Availability)
		assert.Equal(t, rec.ID, e.HeldBy)

		ev, ok, err := broker.Latest(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, domain.MatchPending, ev.Status)
		assert.Equal(t, rec.ID, ev.MatchID)
	}
	f1, _ := store.GetEntry(ctx, "F1")
	assert.Equal(t, domain.AvailabilityAvailable, f1.Availability)

	assert.Equal(t, []string{proposer.ResultCreated}, metrics.Proposals())
	assert.Contains(t, logs.Events(), "match_proposed")
}

func TestPropose_FromFlightSide(t *testing.T) {
	t.Parallel()

	store := inmem.New()
	store.PutEntry(request("R1", "alice", 4))
	store.PutEntry(request("R2", "carol", 1))
	store.PutEntry(flight("F", "bob", 5, t0.Add(time.Hour)))
	svc, _ := newProposer(store, nil, nil)

	rec, err := svc.Propose(context.Background(), "F")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "R1", rec.RequestID)
	assert.Equal(t, "alice", rec.RequestOwner)
	assert.Equal(t, "bob", rec.FlightOwner)
}

func TestPropose_NothingToDo(t *testing.T) {
	t.Parallel()

	store := inmem.New()
	store.PutEntry(request("R", "alice", 2))
	store.PutEntry(domain.CatalogEntry{ID: "RX", Kind: domain.KindRequest, OwnerID: "x", Availability: domain.AvailabilityMatched})
	store.PutEntry(flight("F", "bob", 1, t0.Add(time.Hour)))
	metrics := &stubMetrics{}
	svc, _ := newProposer(store, nil, metrics)
	ctx := context.Background()

	rec, err := svc.Propose(ctx, "R")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, []string{proposer.ResultNone}, metrics.Proposals())

	rec, err = svc.Propose(ctx, "RX")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = svc.Propose(ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPropose_SkipsContendedCandidate(t *testing.T) {
	t.Parallel()

	base := inmem.New()
	base.PutEntry(request("R", "alice", 2))
	base.PutEntry(flight("F1", "bob", 2, t0.Add(time.Hour)))
	base.PutEntry(flight("F2", "carol", 4, t0.Add(time.Hour)))
	store := &stubStore{Store: base}
	store.createFn = func(ctx context.Context, rec domain.MatchRecord, reserve []domain.Reservation) error {
		if rec.FlightID == "F1" {
			return fmt.Errorf("entry F1: %w", apperr.ErrCapacityUnavailable)
		}
		return base.CreatePending(ctx, rec, reserve)
	}
	metrics := &stubMetrics{}
	svc, logs := newProposer(store, nil, metrics)

	rec, err := svc.Propose(context.Background(), "R")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "F2", rec.FlightID)
	assert.Equal(t, []string{proposer.ResultContended, proposer.ResultCreated}, metrics.Proposals())
	assert.True(t, logs.HasMsg("candidate lost to a concurrent change"))

	f1, _ := base.GetEntry(context.Background(), "F1")
	assert.Equal(t, domain.AvailabilityAvailable, f1.Availability)
}

func TestPropose_StopsWhenOwnEntryIsTaken(t *testing.T) {
	t.Parallel()

	base := inmem.New()
	base.PutEntry(request("R", "alice", 2))
	base.PutEntry(flight("F1", "bob", 2, t0.Add(time.Hour)))
	base.PutEntry(flight("F2", "carol", 4, t0.Add(time.Hour)))
	base.PutEntry(flight("F3", "dave", 6, t0.Add(time.Hour)))
	var attempts []string
	store := &stubStore{Store: base}
	store.createFn = func(ctx context.Context, rec domain.MatchRecord, reserve []domain.Reservation) error {
		attempts = append(attempts, rec.FlightID)
		taken := request("R", "alice", 2)
		taken.Availability = domain.AvailabilityReserved
		taken.HeldBy = "rival"
		taken.Version = 2
		base.PutEntry(taken)
		return fmt.Errorf("entry R: %w", apperr.ErrCapacityUnavailable)
	}
	metrics := &stubMetrics{}
	svc, logs := newProposer(store, nil, metrics)

	rec, err := svc.Propose(context.Background(), "R")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, []string{"F1"}, attempts)
	assert.Equal(t, []string{proposer.ResultContended}, metrics.Proposals())
	assert.True(t, logs.HasMsg("entry taken by a concurrent change, no more candidates"))

	for _, id := range []string{"F2", "F3"} {
		f, _ := base.GetEntry(context.Background(), id)
		assert.Equal(t, domain.AvailabilityAvailable, f.Availability)
	}
}

func TestPropose_StoreErrors(t *testing.T) {
	t.Parallel()

	base := inmem.New()
	base.PutEntry(request("R", "alice", 2))
	base.PutEntry(flight("F", "bob", 2, t0.Add(time.Hour)))
	boom := errors.New("boom")

	store := &stubStore{Store: base, listFn: func(context.Context, domain.EntryKind, int) ([]domain.CatalogEntry, error) {
		return nil, boom
	}}
	svc, _ := newProposer(store, nil, nil)
	_, err := svc.Propose(context.Background(), "R")
	assert.True(t, errors.Is(err, boom))

	store = &stubStore{Store: base, createFn: func(context.Context, domain.MatchRecord, []domain.Reservation) error {
		return boom
	}}
	svc, _ = newProposer(store, nil, nil)
	_, err = svc.Propose(context.Background(), "R")
	assert.True(t, errors.Is(err, boom))
}

func TestPropose_ConcurrentFlightsReserveRequestOnce(t *testing.T) {
	t.Parallel()

	for i := 0; i < 30; i++ {
		store := inmem.New()
		store.PutEntry(request("R", "alice", 2))
		store.PutEntry(flight("F1", "bob", 3, t0.Add(time.Hour)))
		store.PutEntry(flight("F2", "carol", 3, t0.Add(time.Hour)))
		svc, _ := newProposer(store, nil, nil)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created []*domain.MatchRecord
		)
		for _, id := range []string{"F1", "F2"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				rec, err := svc.Propose(context.Background(), id)
				assert.NoError(t, err)
				if rec != nil {
					mu.Lock()
					created = append(created, rec)
					mu.Unlock()
				}
			}(id)
		}
		wg.Wait()

		require.Len(t, created, 1)
		r, _ := store.GetEntry(context.Background(), "R")
		assert.Equal(t, created[0].ID, r.HeldBy)
	}
}

func TestPropose_CustomScorer(t *testing.T) {
	t.Parallel()

	store := inmem.New()
	store.PutEntry(request("R", "alice", 2))
	store.PutEntry(flight("F1", "bob", 3, t0.Add(time.Hour)))
	store.PutEntry(flight("F2", "carol", 30, t0.Add(time.Hour)))

	biggest := proposer.ScorerFunc(func(req, f domain.CatalogEntry) (float64, bool) {
		return f.WeightKg, f.WeightKg >= req.WeightKg
	})
	svc := proposer.NewService(store, nil, biggest, nil, proposer.Config{}, nil)

	rec, err := svc.Propose(context.Background(), "R")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "F2", rec.FlightID)
}
