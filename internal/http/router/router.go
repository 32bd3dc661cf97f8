package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"service-courier-match/internal/http/handlers"
	"service-courier-match/internal/http/middleware/auth"
	"service-courier-match/internal/http/middleware/ratelimit"
	"service-courier-match/internal/logx"

	obs "service-courier-match/internal/http/middleware"
)

const requestTimeout = 5 * time.Second

// Deps holds everything the router mounts.
type Deps struct {
	Logger    logx.Logger
	Base      *handlers.Handlers
	Match     *handlers.MatchHandler
	WS        *handlers.WSHandler
	Auth      *auth.Middleware
	RateLimit *ratelimit.Middleware
	Metrics   *obs.HTTPMetrics
	// Gatherer backs /metrics; the default registry is used when nil.
	Gatherer prometheus.Gatherer
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.Observability(d.Logger, d.Metrics))

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.Get("/readyz", d.Base.Ready)
	r.Method(http.MethodGet, "/metrics", metricsHandler(d.Gatherer))

	r.Group(func(r chi.Router) {
		if d.Auth != nil {
			r.Use(d.Auth.Handler())
		}
		if d.RateLimit != nil {
			r.Use(d.RateLimit.Handler())
		}

		// websocket streams outlive the request timeout
		r.Get("/ws/matches", d.WS.Matches)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Post("/orders/confirm-match", d.Match.ConfirmMatch)
			r.Get("/orders/{orderId}/match", d.Match.GetMatch)
		})
	})

	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	return r
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
