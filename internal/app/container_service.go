package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"service-courier-match/internal/config"
	"service-courier-match/internal/events"
	"service-courier-match/internal/logx"
	"service-courier-match/internal/metrics"
	"service-courier-match/internal/ports/matchstore"
	"service-courier-match/internal/repository"
	"service-courier-match/internal/service/match"
	"service-courier-match/internal/service/proposer"
	"service-courier-match/internal/transport/kafka"
)

const brokerBuffer = 16

var newRedisClient = func(cfg config.Redis) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		func(pool *pgxpool.Pool) matchstore.Store {
			return repository.NewStore(pool)
		},
		newEventChannel,
		newNotifier,
		newMatchService,
		newProposer,
	)
}

// newEventChannel picks Redis when it is configured and the in-process
// broker otherwise. The broker only reaches subscribers of this process.
func newEventChannel(ctx context.Context, cfg *config.Config, logger logx.Logger, res *resources) (events.Channel, error) {
	if !cfg.Redis.Enabled() {
		logger.Warn("redis is not configured, match events stay in process")
		return events.NewBroker(brokerBuffer), nil
	}

	rdb := newRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	res.add("redis", rdb.Close)
	return events.NewRedisChannel(rdb, cfg.Redis.Prefix, logger), nil
}

// newNotifier returns the Kafka producer, or nil when Kafka is off.
func newNotifier(cfg *config.Config, logger logx.Logger, res *resources) (match.Notifier, error) {
	p, err := kafka.NewProducer(logger, cfg.Kafka.Brokers, cfg.Kafka.NotifyTopic)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if p == nil {
		return nil, nil
	}
	res.add("kafka producer", p.Close)
	return p, nil
}

func newMatchService(
	store matchstore.Store,
	ch events.Channel,
	notifier match.Notifier,
	m *metrics.Match,
	cfg *config.Config,
	logger logx.Logger,
) *match.Service {
	deps := match.Deps{
		Matches:      store,
		Catalog:      store,
		Materializer: store,
		Publisher:    ch,
		Notifier:     notifier,
	}
	if m != nil {
		deps.Metrics = m
	}
	return match.NewService(deps, match.Config{
		OperationTimeout: cfg.Match.OperationTimeout,
		SweepBatch:       cfg.Match.SweepBatch,
		Retry: match.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		},
	}, logger)
}

func newProposer(
	store matchstore.Store,
	ch events.Channel,
	m *metrics.Match,
	cfg *config.Config,
	logger logx.Logger,
) *proposer.Service {
	var pm proposer.Metrics
	if m != nil {
		pm = m
	}
	return proposer.NewService(store, ch, nil, pm, proposer.Config{
		ConfirmWindow:    cfg.Match.ConfirmWindow,
		MaxCandidates:    cfg.Match.MaxCandidates,
		OperationTimeout: cfg.Match.OperationTimeout,
	}, logger)
}
