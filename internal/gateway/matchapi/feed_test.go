package matchapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/events"
	"service-courier-match/internal/gateway/matchapi"
)

// flakyWS sends one event per connection and then drops it.
func flakyWS(t *testing.T, conns *int32) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Party-ID") != "alice" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("order_id") != "R" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := atomic.AddInt32(conns, 1)
		_ = conn.WriteJSON(events.Event{MatchID: "m1", OrderID: "R", Status: domain.MatchPending, Version: int64(n)})
	}))
}

func TestFeed_SubscribeReconnects(t *testing.T) {
	t.Parallel()

	var conns int32
	srv := flakyWS(t, &conns)
	defer srv.Close()

	feed, err := matchapi.NewFeed(matchapi.Config{BaseURL: srv.URL, PartyID: "alice"},
		matchapi.RetryConfig{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub, err := feed.Subscribe(ctx, "R")
	require.NoError(t, err)

	seen := map[int64]bool{}
	for len(seen) < 2 {
		select {
		case e, ok := <-sub.Events():
			require.True(t, ok, "feed closed early")
			assert.Equal(t, "m1", e.MatchID)
			seen[e.Version] = true
		case <-ctx.Done():
			t.Fatal("no reconnect")
		}
	}

	sub.Close()
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-sub.Events():
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestFeed_SubscribeSurfacesRejection(t *testing.T) {
	t.Parallel()

	var conns int32
	srv := flakyWS(t, &conns)
	defer srv.Close()

	feed, err := matchapi.NewFeed(matchapi.Config{BaseURL: srv.URL, PartyID: "alice"}, matchapi.RetryConfig{}, nil)
	require.NoError(t, err)
	_, err = feed.Subscribe(context.Background(), "F")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	anon, err := matchapi.NewFeed(matchapi.Config{BaseURL: srv.URL}, matchapi.RetryConfig{}, nil)
	require.NoError(t, err)
	_, err = anon.Subscribe(context.Background(), "R")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	require.Zero(t, atomic.LoadInt32(&conns))
}

func TestNewFeed_Scheme(t *testing.T) {
	t.Parallel()

	_, err := matchapi.NewFeed(matchapi.Config{BaseURL: "ftp://host"}, matchapi.RetryConfig{}, nil)
	require.ErrorIs(t, err, apperr.ErrInvalid)
}
