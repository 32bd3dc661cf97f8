package matchapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/events"
	"service-courier-match/internal/logx"
)

const feedBuffer = 16

// Feed subscribes to match events over the /ws/matches stream and
// reconnects after the connection drops. The server replays the latest
// event of the order on every connect.
type Feed struct {
	wsURL  string
	cfg    Config
	retry  RetryConfig
	dialer *websocket.Dialer
	logger logx.Logger
}

// NewFeed derives the websocket address from cfg.BaseURL.
func NewFeed(cfg Config, retry RetryConfig, logger logx.Logger) (*Feed, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("match feed: invalid base url %q: %w", cfg.BaseURL, apperr.ErrInvalid)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("match feed: unsupported scheme %q: %w", u.Scheme, apperr.ErrInvalid)
	}
	if logger == nil {
		logger = logx.Nop()
	}
	dialer := *websocket.DefaultDialer
	if cfg.Timeout > 0 {
		dialer.HandshakeTimeout = cfg.Timeout
	}
	return &Feed{
		wsURL:  u.String(),
		cfg:    cfg,
		retry:  retry,
		dialer: &dialer,
		logger: logger.With(logx.String("component", "match_feed")),
	}, nil
}

// Subscribe implements events.Subscriber. The first connect is synchronous
// so that 401/403/404 reach the caller.
func (f *Feed) Subscribe(ctx context.Context, orderID string) (*events.Subscription, error) {
	conn, err := f.dial(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan events.Event, feedBuffer)
	go f.pump(ctx, orderID, conn, out)
	return events.NewSubscription(out, cancel), nil
}

func (f *Feed) pump(ctx context.Context, orderID string, conn *websocket.Conn, out chan<- events.Event) {
	defer close(out)
	log := f.logger.With(logx.OrderID(orderID))
	for {
		f.read(ctx, conn, out, log)
		if ctx.Err() != nil {
			return
		}
		var err error
		conn, err = f.redial(ctx, orderID, log)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("match feed gave up", logx.Err(err))
			}
			return
		}
		log.Info("match feed reconnected")
	}
}

func (f *Feed) read(ctx context.Context, conn *websocket.Conn, out chan<- events.Event, log logx.Logger) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()
	for {
		var e events.Event
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() == nil {
				log.Warn("match feed read failed", logx.Err(err))
			}
			return
		}
		select {
		case out <- e:
		case <-ctx.Done():
			return
		}
	}
}

func (f *Feed) redial(ctx context.Context, orderID string, log logx.Logger) (*websocket.Conn, error) {
	for attempt := 1; ; attempt++ {
		if !sleepWithContext(ctx, backoff(f.retry.BaseDelay, f.retry.MaxDelay, attempt)) {
			return nil, ctx.Err()
		}
		conn, err := f.dial(ctx, orderID)
		if err == nil {
			return conn, nil
		}
		if !errors.Is(err, ErrUnavailable) || (f.retry.MaxAttempts > 0 && attempt >= f.retry.MaxAttempts) {
			return nil, err
		}
		log.Warn("match feed redial failed", logx.Int("attempt", attempt), logx.Err(err))
	}
}

func (f *Feed) dial(ctx context.Context, orderID string) (*websocket.Conn, error) {
	hdr := http.Header{}
	authorize(f.cfg, hdr)
	conn, resp, err := f.dialer.DialContext(ctx, f.wsURL+"/ws/matches?order_id="+url.QueryEscape(orderID), hdr)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("match feed: %w", statusError(resp.StatusCode, raw))
		}
		return nil, fmt.Errorf("match feed: %w: %w", ErrUnavailable, err)
	}
	return conn, nil
}

var _ events.Subscriber = (*Feed)(nil)
