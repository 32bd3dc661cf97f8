package match_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/events"
	"service-courier-match/internal/ports/matchstore"
	"service-courier-match/internal/repository/inmem"
	"service-courier-match/internal/service/match"
	testlog "service-courier-match/internal/testutil"
)

const (
	alice = "alice"
	bob   = "bob"
)

var baseTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

func (r *recordingNotifier) All() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.notes...)
}

// flakyMatches loses the first n compare-and-swaps.
type flakyMatches struct {
	matchstore.Matches
	mu       sync.Mutex
	failures int
}

func (f *flakyMatches) CompareAndSwap(ctx context.Context, expected int64, next domain.MatchRecord) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return fmt.Errorf("stub: %w", apperr.ErrVersionConflict)
	}
	f.mu.Unlock()
	return f.Matches.CompareAndSwap(ctx, expected, next)
}

type fixture struct {
	store  *inmem.Store
	broker *events.Broker
	notes  *recordingNotifier
	logs   *testlog.Recorder
	clock  *fakeClock
	svc    *match.Service
}

type fixtureOption func(*match.Deps, *match.Config)

func withNotifier(n match.Notifier) fixtureOption {
	return func(d *match.Deps, _ *match.Config) { d.Notifier = n }
}

func withMetrics(m match.Metrics) fixtureOption {
	return func(d *match.Deps, _ *match.Config) { d.Metrics = m }
}

func withMatches(fn func(matchstore.Matches) matchstore.Matches) fixtureOption {
	return func(d *match.Deps, _ *match.Config) { d.Matches = fn(d.Matches) }
}

func withMaxAttempts(n int) fixtureOption {
	return func(_ *match.Deps, c *match.Config) { c.Retry.MaxAttempts = n }
}

// newFixture seeds request R (alice) and flight F (bob) and proposes m1 for them.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		store:  inmem.New(),
		broker: events.NewBroker(4),
		notes:  &recordingNotifier{},
		logs:   testlog.New(),
		clock:  &fakeClock{now: baseTime},
	}
	deps := match.Deps{
		Matches:      f.store,
		Catalog:      f.store,
		Materializer: f.store,
		Publisher:    f.broker,
		Notifier:     f.notes,
		Now:          f.clock.Now,
	}
	cfg := match.Config{
		OperationTimeout: 2 * time.Second,
		SweepBatch:       10,
		SettleGrace:      time.Second,
		Retry: match.RetryConfig{
			MaxAttempts: 100,
			BaseDelay:   time.Microsecond,
			MaxDelay:    100 * time.Microsecond,
		},
	}
	for _, o := range opts {
		o(&deps, &cfg)
	}
	f.svc = match.NewService(deps, cfg, f.logs.Logger())

	f.propose(t, "m1", "R", "F")
	return f
}

func (f *fixture) propose(t *testing.T, id, requestID, flightID string) domain.MatchRecord {
	t.Helper()
	req := domain.CatalogEntry{ID: requestID, Kind: domain.KindRequest, OwnerID: alice, Origin: "TAS", Destination: "MOW", WeightKg: 2}
	flight := domain.CatalogEntry{ID: flightID, Kind: domain.KindFlight, OwnerID: bob, Origin: "TAS", Destination: "MOW", WeightKg: 5}
	f.store.PutEntry(req)
	f.store.PutEntry(flight)

	rec := domain.NewMatchRecord(id, req, flight, f.clock.Now(), 15*time.Minute)
	err := f.store.CreatePending(context.Background(), rec, []domain.Reservation{
		{EntryID: requestID, Version: 1},
		{EntryID: flightID, Version: 1},
	})
	require.NoError(t, err)
	return rec
}

func (f *fixture) record(t *testing.T, id string) domain.MatchRecord {
	t.Helper()
	rec, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return *rec
}

func (f *fixture) availability(t *testing.T, id string) domain.Availability {
	t.Helper()
	e, err := f.store.GetEntry(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e.Availability
}

func (f *fixture) latest(t *testing.T, orderID string) domain.MatchStatus {
	t.Helper()
	e, ok, err := f.broker.Latest(context.Background(), orderID)
	require.NoError(t, err)
	require.True(t, ok, "no event for %s", orderID)
	return e.Status
}

func newCtrl(t *testing.T) *gomock.Controller {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return ctrl
}
