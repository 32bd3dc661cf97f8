package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"service-courier-match/internal/logx"
)

// publishScript stores ARGV[1] under KEYS[1] unless the stored event
// supersedes it, then publishes it on KEYS[2].
var publishScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local c = cjson.decode(cur)
  local seq = tonumber(ARGV[2])
  local ver = tonumber(ARGV[4])
  if c.match_seq > seq then return 0 end
  if c.match_seq == seq then
    if c.match_id > ARGV[3] then return 0 end
    if c.match_id == ARGV[3] and c.version >= ver then return 0 end
  end
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('PUBLISH', KEYS[2], ARGV[1])
return 1
`)

// RedisChannel is a Channel backed by a Redis key per order plus Pub/Sub.
type RedisChannel struct {
	rdb    redis.UniversalClient
	prefix string
	buffer int
	logger logx.Logger
}

// NewRedisChannel returns a RedisChannel. Keys are namespaced by prefix.
func NewRedisChannel(rdb redis.UniversalClient, prefix string, logger logx.Logger) *RedisChannel {
	if prefix == "" {
		prefix = "match"
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &RedisChannel{rdb: rdb, prefix: prefix, buffer: defaultBuffer, logger: logger}
}

// Ping checks the Redis connection.
func (c *RedisChannel) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisChannel) latestKey(orderID string) string {
	return c.prefix + ":latest:" + orderID
}

func (c *RedisChannel) topic(orderID string) string {
	return c.prefix + ":events:" + orderID
}

// Publish implements Publisher.
func (c *RedisChannel) Publish(ctx context.Context, e Event) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("marshal event: %w", err)
	}
	n, err := publishScript.Run(ctx, c.rdb,
		[]string{c.latestKey(e.OrderID), c.topic(e.OrderID)},
		string(payload), e.MatchSeq, e.MatchID, e.Version,
	).Int()
	if err != nil {
		return false, fmt.Errorf("publish event: %w", err)
	}
	return n == 1, nil
}

// Latest implements Channel.
func (c *RedisChannel) Latest(ctx context.Context, orderID string) (Event, bool, error) {
	raw, err := c.rdb.Get(ctx, c.latestKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, fmt.Errorf("get latest event: %w", err)
	}
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, false, fmt.Errorf("decode latest event: %w", err)
	}
	return e, true, nil
}

// Subscribe implements Subscriber. The stored latest event is read after the
// Pub/Sub subscription is confirmed, so no write is lost in between.
func (c *RedisChannel) Subscribe(ctx context.Context, orderID string) (*Subscription, error) {
	ps := c.rdb.Subscribe(ctx, c.topic(orderID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", orderID, err)
	}

	latest, ok, err := c.Latest(ctx, orderID)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Event, c.buffer)
	done := make(chan struct{})
	msgs := ps.Channel()

	go func() {
		defer close(out)
		var last Event
		have := false
		deliver := func(e Event) {
			if have && !e.Supersedes(last) {
				return
			}
			last, have = e, true
			offer(out, e)
		}
		if ok {
			deliver(latest)
		}
		for {
			select {
			case <-done:
				return
			case m, open := <-msgs:
				if !open {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(m.Payload), &e); err != nil {
					c.logger.Warn("event decode failed",
						logx.OrderID(orderID),
						logx.Err(err),
					)
					continue
				}
				deliver(e)
			}
		}
	}()

	sub := NewSubscription(out, func() {
		close(done)
		if err := ps.Close(); err != nil {
			c.logger.Debug("pubsub close failed", logx.OrderID(orderID), logx.Err(err))
		}
	})
	context.AfterFunc(ctx, sub.Close)
	return sub, nil
}

var _ Channel = (*RedisChannel)(nil)
