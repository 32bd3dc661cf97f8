package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"service-courier-match/internal/domain"
	"service-courier-match/internal/logx"
)

var newSyncProducer = sarama.NewSyncProducer

// Producer publishes match notifications. It implements the coordinator's
// Notifier.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   logx.Logger
}

// NewProducer creates a Kafka producer. It returns nil, nil when Kafka is not
// configured.
func NewProducer(logger logx.Logger, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	p, err := newSyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, err
	}
	return newProducer(p, topic, logger), nil
}

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	return cfg
}

func newProducer(p sarama.SyncProducer, topic string, logger logx.Logger) *Producer {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Producer{
		producer: p,
		topic:    topic,
		logger:   logger.With(logx.String("component", "kafka_producer"), logx.String("topic", topic)),
	}
}

// Notify sends n keyed by its match id, so every notification of one match
// lands on one partition.
func (p *Producer) Notify(ctx context.Context, n domain.Notification) error {
	if p == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := json.Marshal(FromNotification(n))
	if err != nil {
		return Permanent(fmt.Errorf("encode notification %s: %w", n.EventID, err))
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(n.MatchID),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_id"), Value: []byte(n.EventID)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("kafka notify failed", logx.String("event_id", n.EventID), logx.Err(err))
		return fmt.Errorf("send notification %s: %w", n.EventID, err)
	}
	p.logger.Debug("kafka notification sent",
		logx.String("event_id", n.EventID),
		logx.Int("partition", int(partition)),
		logx.Int64("offset", offset),
	)
	return nil
}

// Close flushes and closes the producer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
