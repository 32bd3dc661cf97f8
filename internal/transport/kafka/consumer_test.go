package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	"service-courier-match/internal/service/catalogsync"
	testlog "service-courier-match/internal/testutil"
)

type fakeGroup struct {
	consumeFn func(ctx context.Context) error
	closed    bool
}

func (g *fakeGroup) Consume(ctx context.Context, _ []string, _ sarama.ConsumerGroupHandler) error {
	if g.consumeFn == nil {
		<-ctx.Done()
		return nil
	}
	return g.consumeFn(ctx)
}

func (g *fakeGroup) Errors() <-chan error {
	ch := make(chan error)
	close(ch)
	return ch
}

func (g *fakeGroup) Close() error {
	g.closed = true
	return nil
}

func (g *fakeGroup) Pause(map[string][]int32)  {}
func (g *fakeGroup) Resume(map[string][]int32) {}
func (g *fakeGroup) PauseAll()                 {}
func (g *fakeGroup) ResumeAll()                {}

func TestNewConsumer_SkipsWhenNoKafkaConfig(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	h := func(context.Context, catalogsync.Event) error { return nil }

	got, err := NewConsumer(rec.Logger(), nil, "gid", "topic", h)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = NewConsumer(rec.Logger(), []string{"b:9092"}, "", "topic", nil)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = NewConsumer(rec.Logger(), []string{"b:9092"}, "gid", "   ", nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

// Tests below swap package-level constructors and must not run in parallel.

func TestNewConsumer_ReturnsErrorWhenSaramaFails(t *testing.T) {
	orig := newConsumerGroup
	t.Cleanup(func() { newConsumerGroup = orig })

	sentinel := errors.New("boom")
	newConsumerGroup = func(_ []string, _ string, _ *sarama.Config) (sarama.ConsumerGroup, error) {
		return nil, sentinel
	}

	got, err := NewConsumer(testlog.New().Logger(), []string{"b:9092"}, "gid", "topic", nil)
	require.ErrorIs(t, err, sentinel)
	require.Nil(t, got)
}

func TestConsumer_RunRetriesUntilCancelled(t *testing.T) {
	orig := newConsumerGroup
	t.Cleanup(func() { newConsumerGroup = orig })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	group := &fakeGroup{consumeFn: func(context.Context) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return errors.New("rebalance")
	}}
	newConsumerGroup = func(_ []string, _ string, cfg *sarama.Config) (sarama.ConsumerGroup, error) {
		require.Equal(t, sarama.OffsetOldest, cfg.Consumer.Offsets.Initial)
		return group, nil
	}

	rec := testlog.New()
	c, err := NewConsumer(rec.Logger(), []string{"b:9092"}, "gid", "catalog.changes", nil)
	require.NoError(t, err)
	c.backoff = time.Millisecond

	err = c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 3, calls)
	require.True(t, rec.HasMsg("kafka consume error"))

	require.NoError(t, c.Close())
	require.True(t, group.closed)
}

func TestConsumer_NilIsNoop(t *testing.T) {
	t.Parallel()

	var c *Consumer
	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, c.Close())
}
