// Package auth resolves the calling party of a request.
package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"service-courier-match/internal/logx"
)

// PartyHeader carries the party id when JWT auth is not enforced.
const PartyHeader = "X-Party-ID"

type ctxKey struct{}

// WithParty returns ctx carrying partyID.
func WithParty(ctx context.Context, partyID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, partyID)
}

// PartyFromContext returns the party stored by the middleware.
func PartyFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Config controls how parties are authenticated.
type Config struct {
	// Secret verifies HS256 bearer tokens. Bearer tokens are refused when empty.
	Secret []byte
	// AllowHeader accepts PartyHeader on requests without a bearer token.
	AllowHeader bool
}

var (
	errNoCredentials = errors.New("no credentials")
	errNoSecret      = errors.New("bearer tokens are not accepted")
	errNoSubject     = errors.New("token has no subject")
)

// Middleware rejects requests without a resolvable party with 401.
type Middleware struct {
	cfg    Config
	logger logx.Logger
}

// New creates a new Middleware
func New(logger logx.Logger, cfg Config) *Middleware {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Middleware{cfg: cfg, logger: logger}
}

// Handler returns chi-style middleware.
func (m *Middleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			party, err := m.resolve(r)
			if err != nil {
				m.logger.Info("unauthenticated request",
					logx.String("method", r.Method),
					logx.String("path", r.URL.Path),
					logx.Err(err),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithParty(r.Context(), party)))
		})
	}
}

func (m *Middleware) resolve(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return "", errNoCredentials
		}
		return m.parse(strings.TrimSpace(token))
	}
	// browsers cannot set headers on websocket upgrades
	if t := r.URL.Query().Get("access_token"); t != "" {
		return m.parse(t)
	}
	if m.cfg.AllowHeader {
		if id := strings.TrimSpace(r.Header.Get(PartyHeader)); id != "" {
			return id, nil
		}
	}
	return "", errNoCredentials
}

func (m *Middleware) parse(raw string) (string, error) {
	if len(m.cfg.Secret) == 0 {
		return "", errNoSecret
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errNoSubject
	}
	return claims.Subject, nil
}

// Sign issues an HS256 token for partyID. Used by tooling and tests.
func Sign(secret []byte, partyID string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = partyID
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
