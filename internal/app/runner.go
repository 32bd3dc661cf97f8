package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-courier-match/internal/logx"
	"service-courier-match/internal/service/match"
)

var exit = os.Exit

// Runner runs the API process.
type Runner struct {
	runFn func(*dig.Container) error
}

// NewRunner returns a new Runner
func NewRunner() *Runner {
	return &Runner{runFn: run}
}

// MustRun starts the HTTP server using the provided DI container
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}

	logger := logx.Nop()
	_ = container.Invoke(func(l logx.Logger) { logger = l })

	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("startup aborted: startup timeout exceeded")
	default:
		logger.Error("run error", logx.Err(err))
		exit(1)
	}
}

// MustRun runs the API process with a default Runner.
func MustRun(container *dig.Container) {
	NewRunner().MustRun(container)
}

type runIn struct {
	dig.In

	Ctx       context.Context
	Logger    logx.Logger
	Pool      *pgxpool.Pool `optional:"true"`
	Server    *http.Server
	Pprof     *http.Server `name:"pprof_server" optional:"true"`
	Sweeper   *match.Service
	Interval  sweepInterval
	Resources *resources `optional:"true"`
}

func run(container *dig.Container) error {
	return container.Invoke(appRun)
}

func appRun(in runIn) error {
	if err := prepareSchema(in.Ctx, in.Pool); err != nil {
		return err
	}
	defer closeResources(in.Pool, in.Resources, in.Logger)

	errc := make(chan error, 2)
	startServer(in.Server, "service-match", in.Logger, errc)
	if in.Pprof != nil {
		startServer(in.Pprof, "pprof", in.Logger, errc)
	}
	startSweepLoop(in.Ctx, in.Logger, in.Sweeper, time.Duration(in.Interval))

	var err error
	select {
	case <-in.Ctx.Done():
		in.Logger.Info("shutting down service-match...")
		err = in.Ctx.Err()
	case err = <-errc:
	}

	gracefulShutdown(in.Server, in.Logger, 15*time.Second)
	if in.Pprof != nil {
		gracefulShutdown(in.Pprof, in.Logger, time.Second)
	}
	return err
}

func startServer(server *http.Server, name string, logger logx.Logger, errc chan<- error) {
	go func() {
		logger.Info(name+" listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(name+" listen error", logx.Err(err))
			errc <- err
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown error", logx.Err(err))
		_ = srv.Close()
	}
}

func closeResources(pool *pgxpool.Pool, res *resources, logger logx.Logger) {
	res.closeAll(logger)
	if pool != nil {
		pool.Close()
	}
	_ = logger.Sync()
}
