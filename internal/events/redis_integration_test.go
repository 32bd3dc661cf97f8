//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"service-courier-match/internal/domain"
	"service-courier-match/internal/logx"
)

type RedisChannelSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	rdb       *redis.Client
}

func TestRedisChannelSuite(t *testing.T) {
	suite.Run(t, new(RedisChannelSuite))
}

func (s *RedisChannelSuite) SetupSuite() {
	s.ctx = context.Background()
	c, err := tcredis.Run(s.ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = c

	uri, err := c.ConnectionString(s.ctx)
	s.Require().NoError(err)
	opts, err := redis.ParseURL(uri)
	s.Require().NoError(err)
	s.rdb = redis.NewClient(opts)
}

func (s *RedisChannelSuite) TearDownSuite() {
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RedisChannelSuite) SetupTest() {
	s.Require().NoError(s.rdb.FlushDB(s.ctx).Err())
}

func (s *RedisChannelSuite) TestPublishGuardsVersion() {
	ch := NewRedisChannel(s.rdb, "t", logx.Nop())

	ok, err := ch.Publish(s.ctx, Event{OrderID: "R", MatchID: "m1", MatchSeq: 1, Version: 3, Status: domain.MatchConfirmed})
	s.Require().NoError(err)
	s.True(ok)

	ok, err = ch.Publish(s.ctx, Event{OrderID: "R", MatchID: "m1", MatchSeq: 1, Version: 2, Status: domain.MatchPending})
	s.Require().NoError(err)
	s.False(ok)

	latest, found, err := ch.Latest(s.ctx, "R")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(domain.MatchConfirmed, latest.Status)
}

func (s *RedisChannelSuite) TestSubscribeReplaysAndStreams() {
	ch := NewRedisChannel(s.rdb, "t", logx.Nop())

	_, err := ch.Publish(s.ctx, Event{OrderID: "F", MatchID: "m1", MatchSeq: 1, Version: 1, Status: domain.MatchPending})
	s.Require().NoError(err)

	sub, err := ch.Subscribe(s.ctx, "F")
	s.Require().NoError(err)
	defer sub.Close()

	s.Equal(domain.MatchPending, s.next(sub).Status)

	_, err = ch.Publish(s.ctx, Event{OrderID: "F", MatchID: "m1", MatchSeq: 1, Version: 2, Status: domain.MatchRejected})
	s.Require().NoError(err)
	s.Equal(domain.MatchRejected, s.next(sub).Status)
}

func (s *RedisChannelSuite) TestLatestMissing() {
	ch := NewRedisChannel(s.rdb, "t", logx.Nop())
	_, found, err := ch.Latest(s.ctx, "nope")
	s.Require().NoError(err)
	s.False(found)
}

func (s *RedisChannelSuite) next(sub *Subscription) Event {
	select {
	case e, ok := <-sub.Events():
		s.Require().True(ok)
		return e
	case <-time.After(5 * time.Second):
		s.FailNow("no event received")
	}
	return Event{}
}
