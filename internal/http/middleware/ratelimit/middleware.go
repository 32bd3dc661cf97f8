package ratelimit

import (
	"io"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"service-courier-match/internal/http/middleware/auth"
	"service-courier-match/internal/logx"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// Middleware представляет собой middleware для ограничения количества запросов
type Middleware struct {
	logger  logx.Logger        // логгер
	counter prometheus.Counter // счетчик
	limiter Limiter            // лимитер
	key     KeyFunc
}

// New создает новый Middleware. Requests are keyed by PartyOrIP.
func New(logger logx.Logger, counter prometheus.Counter, limiter Limiter) *Middleware {
	if limiter == nil {
		limiter = Unlimited{}
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Middleware{
		logger:  logger,
		counter: counter,
		limiter: limiter,
		key:     PartyOrIP,
	}
}

// WithKey replaces the key function.
func (m *Middleware) WithKey(fn KeyFunc) *Middleware {
	if fn != nil {
		m.key = fn
	}
	return m
}

// Handler returns chi-style middleware.
func (m *Middleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := m.key(r)

			if !m.limiter.Allow(key) {
				// считаю отказы
				if m.counter != nil {
					m.counter.Inc()
				}
				m.logger.Warn("rate limit exceeded",
					logx.String("key", key),
					logx.String("method", r.Method),
					logx.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				if _, err := io.WriteString(w, `{"error":"too many requests"}`); err != nil {
					// клиент мог оборвать соединение; это не ошибка бизнес-логики
					m.logger.Debug("rate limit response write failed",
						logx.String("key", key),
						logx.Err(err),
					)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PartyOrIP keys authenticated requests by party and the rest by client IP.
func PartyOrIP(r *http.Request) string {
	if party, ok := auth.PartyFromContext(r.Context()); ok {
		return "party:" + party
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
