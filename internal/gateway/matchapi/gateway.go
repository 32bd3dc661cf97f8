// Package matchapi is the client side of the match HTTP API.
package matchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/http/middleware/auth"
)

// ErrUnavailable marks failures worth repeating: transport errors, 429 and 5xx.
var ErrUnavailable = errors.New("match api unavailable")

// DecisionRequest is one confirm or reject call.
type DecisionRequest struct {
	OrderID        string
	MatchID        string
	Action         domain.Decision
	Reason         string
	IdempotencyKey string
}

// DecisionReply is the API answer to a decision.
type DecisionReply struct {
	Status          string `json:"status"`
	MatchID         string `json:"match_id"`
	OrderID         string `json:"order_id,omitempty"`
	ChatID          string `json:"chat_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Note            string `json:"note,omitempty"`
	AlreadyResolved bool   `json:"already_resolved,omitempty"`
}

// MatchView is the current match of an order as seen by a party.
type MatchView struct {
	MatchID        string    `json:"match_id"`
	OrderID        string    `json:"order_id"`
	MatchedOrderID string    `json:"matched_order_id"`
	RequestID      string    `json:"request_id"`
	FlightID       string    `json:"flight_id"`
	Status         string    `json:"status"`
	YourDecision   string    `json:"your_decision,omitempty"`
	Waiting        bool      `json:"waiting_on_counterpart"`
	Deadline       time.Time `json:"deadline"`
	CreatedOrderID string    `json:"created_order_id,omitempty"`
	ChatID         string    `json:"chat_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Version        int64     `json:"version"`
}

// Config stores client settings. Token wins over PartyID.
type Config struct {
	BaseURL string
	Token   string
	PartyID string
	// Timeout bounds a single attempt.
	Timeout time.Duration
}

// HTTPGateway calls the match API over HTTP.
type HTTPGateway struct {
	base   *url.URL
	cfg    Config
	client *http.Client
}

// NewHTTPGateway validates cfg.BaseURL and returns a gateway.
func NewHTTPGateway(cfg Config, client *http.Client) (*HTTPGateway, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("match gateway: invalid base url %q: %w", cfg.BaseURL, apperr.ErrInvalid)
	}
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &HTTPGateway{base: u, cfg: cfg, client: client}, nil
}

type decisionBody struct {
	OrderID string `json:"orderId"`
	MatchID string `json:"matchId,omitempty"`
	Action  string `json:"action"`
	Reason  string `json:"reason,omitempty"`
}

// Decide posts a decision. The same request may be sent again safely.
func (g *HTTPGateway) Decide(ctx context.Context, req DecisionRequest) (*DecisionReply, error) {
	body, err := json.Marshal(decisionBody{
		OrderID: req.OrderID,
		MatchID: req.MatchID,
		Action:  string(req.Action),
		Reason:  req.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("match gateway: encode decision: %w", err)
	}
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		hdr.Set("Idempotency-Key", req.IdempotencyKey)
	}

	var out DecisionReply
	if err := g.do(ctx, http.MethodPost, "/orders/confirm-match", hdr, body, &out); err != nil {
		return nil, fmt.Errorf("match gateway: Decide: %w", err)
	}
	return &out, nil
}

// GetMatch fetches the current match of orderID.
func (g *HTTPGateway) GetMatch(ctx context.Context, orderID string) (*MatchView, error) {
	var out MatchView
	path := "/orders/" + url.PathEscape(orderID) + "/match"
	if err := g.do(ctx, http.MethodGet, path, http.Header{}, nil, &out); err != nil {
		return nil, fmt.Errorf("match gateway: GetMatch: %w", err)
	}
	return &out, nil
}

func authorize(cfg Config, h http.Header) {
	switch {
	case cfg.Token != "":
		h.Set("Authorization", "Bearer "+cfg.Token)
	case cfg.PartyID != "":
		h.Set(auth.PartyHeader, cfg.PartyID)
	}
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, hdr http.Header, body []byte, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.base.String()+path, rd)
	if err != nil {
		return err
	}
	req.Header = hdr
	req.Header.Set("Accept", "application/json")
	authorize(g.cfg, req.Header)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(code int, raw []byte) error {
	var eb struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}

	var kind error
	switch {
	case code == http.StatusBadRequest:
		kind = apperr.ErrInvalid
	case code == http.StatusUnauthorized:
		kind = apperr.ErrUnauthorized
	case code == http.StatusForbidden:
		kind = apperr.ErrForbidden
	case code == http.StatusNotFound:
		kind = apperr.ErrNotFound
	case code == http.StatusConflict:
		kind = apperr.ErrConflict
	case code == http.StatusTooManyRequests, code >= 500:
		kind = ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d: %s", code, msg)
	}
	return fmt.Errorf("%w: status %d: %s", kind, code, msg)
}
