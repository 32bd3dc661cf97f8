package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-courier-match/internal/config"
	"service-courier-match/internal/events"
	"service-courier-match/internal/http/handlers"
	"service-courier-match/internal/http/middleware/auth"
	"service-courier-match/internal/http/middleware/ratelimit"
	"service-courier-match/internal/http/pprofserver"
	"service-courier-match/internal/http/router"
	"service-courier-match/internal/logx"
	"service-courier-match/internal/ports/matchstore"

	obs "service-courier-match/internal/http/middleware"
)

type routerIn struct {
	dig.In

	Logger    logx.Logger
	Base      *handlers.Handlers
	Match     *handlers.MatchHandler
	WS        *handlers.WSHandler
	Auth      *auth.Middleware
	RateLimit *ratelimit.Middleware
	Metrics   *obs.HTTPMetrics
	Gatherer  prometheus.Gatherer
}

type baseHandlersIn struct {
	dig.In

	Logger  logx.Logger
	Pool    *pgxpool.Pool `optional:"true"`
	Channel events.Channel
}

type pinger interface {
	Ping(ctx context.Context) error
}

func newBaseHandlers(in baseHandlersIn) *handlers.Handlers {
	h := handlers.New(in.Logger)
	if in.Pool != nil {
		h.WithCheck("postgres", in.Pool.Ping)
	}
	if p, ok := in.Channel.(pinger); ok {
		h.WithCheck("events", p.Ping)
	}
	return h
}

type pprofOut struct {
	dig.Out

	Server *http.Server `name:"pprof_server"`
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	pprofProvider := func(cfg *config.Config) pprofOut {
		if !cfg.Pprof.Enabled {
			return pprofOut{}
		}
		return pprofOut{Server: pprofserver.NewServer(pprofserver.Config{
			Addr: cfg.Pprof.Addr,
			User: cfg.Pprof.User,
			Pass: cfg.Pprof.Pass,
		})}
	}
	return provideAll(container,
		newBaseHandlers,
		handlers.NewMatchUsecase,
		handlers.NewMatchHandler,
		func(logger logx.Logger, ch events.Channel, store matchstore.Store) *handlers.WSHandler {
			return handlers.NewWSHandler(logger, ch, store)
		},
		func(cfg *config.Config, logger logx.Logger) *auth.Middleware {
			return auth.New(logger, auth.Config{
				Secret:      []byte(cfg.Auth.JWTSecret),
				AllowHeader: cfg.Auth.AllowHeader,
			})
		},
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		func(in routerIn) http.Handler {
			return router.New(router.Deps{
				Logger:    in.Logger,
				Base:      in.Base,
				Match:     in.Match,
				WS:        in.WS,
				Auth:      in.Auth,
				RateLimit: in.RateLimit,
				Metrics:   in.Metrics,
				Gatherer:  in.Gatherer,
			})
		},
		serverProvider,
		pprofProvider,
	)
}

func newRateLimitClock() ratelimit.Clock { return ratelimit.SystemClock }

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return ratelimit.Unlimited{}
	}
	return ratelimit.NewTokenBucketLimiter(clock, ratelimit.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
}

type rateLimitIn struct {
	dig.In

	Logger  logx.Logger
	Counter prometheus.Counter `name:"rate_limit_exceeded_total"`
	Limiter ratelimit.Limiter
}

// buckets are keyed by party; the client IP is the fallback for anonymous calls
func newRateLimitMiddleware(in rateLimitIn) *ratelimit.Middleware {
	return ratelimit.New(in.Logger, in.Counter, in.Limiter).WithKey(ratelimit.PartyOrIP)
}
