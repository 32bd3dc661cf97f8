package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-courier-match/internal/config"
	"service-courier-match/internal/logx"
	"service-courier-match/internal/service/catalogsync"
	"service-courier-match/internal/service/match"
	"service-courier-match/internal/service/proposer"
	"service-courier-match/internal/transport/kafka"
)

// catalogTimeout bounds one catalog event, proposal included.
const catalogTimeout = 5 * time.Second

// WorkerRunner runs the catalog worker
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun starts the worker using the provided DI container
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		func(prop *proposer.Service, svc *match.Service, logger logx.Logger) *catalogsync.Processor {
			return catalogsync.NewProcessor(prop, svc, logger)
		},
		func(cfg *config.Config, logger logx.Logger, p *catalogsync.Processor) (*kafka.Consumer, error) {
			return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.CatalogTopic,
				makeCatalogHandler(p, catalogTimeout))
		},
	)
}

type workerIn struct {
	dig.In

	Ctx       context.Context
	Logger    logx.Logger
	Pool      *pgxpool.Pool   `optional:"true"`
	Consumer  *kafka.Consumer `optional:"true"`
	Sweeper   *match.Service  `optional:"true"`
	Interval  sweepInterval   `optional:"true"`
	Resources *resources      `optional:"true"`
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(in workerIn) error {
	if in.Consumer == nil {
		return fmt.Errorf("kafka consumer is nil: worker container misconfigured")
	}
	defer closeWorker(in.Pool, in.Resources, in.Logger, in.Consumer)

	if err := prepareSchema(in.Ctx, in.Pool); err != nil {
		return err
	}
	if in.Sweeper != nil {
		startSweepLoop(in.Ctx, in.Logger, in.Sweeper, time.Duration(in.Interval))
	}

	in.Logger.Info("service-match-worker started")
	return in.Consumer.Run(in.Ctx)
}

func closeWorker(pool *pgxpool.Pool, res *resources, logger logx.Logger, consumer *kafka.Consumer) {
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka close error", logx.Err(err))
		}
	}
	closeResources(pool, res, logger)
}
