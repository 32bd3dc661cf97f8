package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"service-courier-match/internal/domain"
	testlog "service-courier-match/internal/testutil"
)

func confirmedNotification() domain.Notification {
	return domain.Notification{
		EventID:   "m-1:confirmed",
		MatchID:   "m-1",
		Type:      domain.MatchConfirmed,
		Parties:   []string{"alice", "bob"},
		OrderIDs:  []string{"F", "R"},
		ChatID:    "chat_R_F",
		CreatedAt: time.Date(2025, 1, 1, 12, 5, 0, 0, time.UTC),
	}
}

func TestNotificationDTO_Golden(t *testing.T) {
	t.Parallel()

	got, err := json.MarshalIndent(FromNotification(confirmedNotification()), "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "notification_confirmed", got)
}

func TestProducer_NotifySendsKeyedMessage(t *testing.T) {
	t.Parallel()

	sp := mocks.NewSyncProducer(t, producerConfig())
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "match.notifications" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "m-1" {
			return errors.New("wrong key " + string(key))
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "m-1:confirmed" {
			return errors.New("missing event_id header")
		}
		b, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var dto NotificationDTO
		if err := json.Unmarshal(b, &dto); err != nil {
			return err
		}
		if dto.Type != "confirmed" || dto.ChatID != "chat_R_F" {
			return errors.New("unexpected payload " + string(b))
		}
		return nil
	})

	p := newProducer(sp, "match.notifications", testlog.New().Logger())
	require.NoError(t, p.Notify(context.Background(), confirmedNotification()))
	require.NoError(t, p.Close())
}

func TestProducer_NotifyFailure(t *testing.T) {
	t.Parallel()

	sp := mocks.NewSyncProducer(t, producerConfig())
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	rec := testlog.New()
	p := newProducer(sp, "match.notifications", rec.Logger())
	err := p.Notify(context.Background(), confirmedNotification())
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.True(t, rec.HasMsg("kafka notify failed"))
	require.NoError(t, p.Close())
}

func TestProducer_CancelledContext(t *testing.T) {
	t.Parallel()

	sp := mocks.NewSyncProducer(t, producerConfig())
	p := newProducer(sp, "match.notifications", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Notify(ctx, confirmedNotification()), context.Canceled)
	require.NoError(t, p.Close())
}

func TestNewProducer(t *testing.T) {
	got, err := NewProducer(nil, nil, "topic")
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, got.Notify(context.Background(), confirmedNotification()))

	orig := newSyncProducer
	t.Cleanup(func() { newSyncProducer = orig })

	sentinel := errors.New("no brokers")
	newSyncProducer = func(_ []string, cfg *sarama.Config) (sarama.SyncProducer, error) {
		require.True(t, cfg.Producer.Return.Successes)
		require.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
		return nil, sentinel
	}
	_, err = NewProducer(nil, []string{"b:9092"}, "topic")
	require.ErrorIs(t, err, sentinel)
}
