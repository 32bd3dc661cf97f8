package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-courier-match/internal/config"
	"service-courier-match/internal/logx"
	"service-courier-match/internal/metrics"
	"service-courier-match/internal/service/match"
)

// OpenAdmin wires a coordinator for operator tools. Configuration comes from
// .env and the environment only. The returned func releases every client.
func OpenAdmin(ctx context.Context, logger logx.Logger) (*match.Service, func(), error) {
	return openAdmin(ctx, logger, config.LoadEnv, connectDbWithRetry)
}

func openAdmin(
	ctx context.Context,
	logger logx.Logger,
	load func() (*config.Config, error),
	dbConnect dbConnectFunc,
) (*match.Service, func(), error) {
	if logger == nil {
		logger = logx.Nop()
	}
	container := dig.New()
	err := provideAll(container,
		func() context.Context { return ctx },
		load,
		func() logx.Logger { return logger },
		func() *metrics.Match { return nil },
		newResources,
		func(ctx context.Context, logger logx.Logger, cfg *config.Config) (*pgxpool.Pool, error) {
			return dbConnect(ctx, logger, cfg.DB.DSN(), 3, 500*time.Millisecond)
		},
	)
	if err != nil {
		return nil, nil, err
	}
	if err := registerService(container); err != nil {
		return nil, nil, fmt.Errorf("service: %w", err)
	}

	var (
		svc     *match.Service
		release func()
	)
	err = container.Invoke(func(s *match.Service, pool *pgxpool.Pool, res *resources) error {
		if err := prepareSchema(ctx, pool); err != nil {
			closeResources(pool, res, logger)
			return err
		}
		svc = s
		release = func() { closeResources(pool, res, logger) }
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, release, nil
}
