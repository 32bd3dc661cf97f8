package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFields_Constructors(t *testing.T) {
	now := time.Now()
	boom := errors.New("boom")

	require.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	require.Equal(t, Field{Key: "k", Value: 1}, Int("k", 1))
	require.Equal(t, Field{Key: "k", Value: int64(2)}, Int64("k", int64(2)))
	require.Equal(t, Field{Key: "k", Value: now}, Time("k", now))
	require.Equal(t, Field{Key: "k", Value: time.Second}, Duration("k", time.Second))
	require.Equal(t, Field{Key: "k", Value: true}, Bool("k", true))
	require.Equal(t, Field{Key: "err", Value: boom}, Err(boom))
	require.Equal(t, Field{Key: "match_id", Value: "m1"}, MatchID("m1"))
	require.Equal(t, Field{Key: "party_id", Value: "alice"}, PartyID("alice"))
	require.Equal(t, Field{Key: "order_id", Value: "R"}, OrderID("R"))
	require.Equal(t, Field{Key: "entry_id", Value: "F"}, EntryID("F"))
	require.Equal(t, Field{Key: "k", Value: struct{ A int }{A: 1}}, Any("k", struct{ A int }{A: 1}))
}

func TestNopLogger_NoPanic(t *testing.T) {
	l := Nop()
	l.Debug("d", String("k", "v"))
	l.Info("i", Int("n", 1))
	l.Warn("w")
	l.Error("e")

	l2 := l.With(String("x", "y"))
	require.NotNil(t, l2)

	require.NoError(t, l.Sync())
	require.NoError(t, l2.Sync())
}

func TestSlogAdapter_WithAndToSlogArgs(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	l := NewSlogAdapter(base)

	args := toSlogArgs([]Field{
		String("a", "b"),
		Int("n", 1),
	})
	require.Len(t, args, 2)

	l2 := l.With(String("x", "y"))
	require.NotNil(t, l2)

	l2.Info("msg", String("k", "v"))
	l2.Debug("msg")
	l2.Warn("msg")
	l2.Error("msg", Err(errors.New("boom")))
	require.NoError(t, l2.Sync())
}

func TestSlogAdapter_ErrorsAsText(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))

	l.Error("match sweep failed", MatchID("m1"), Err(errors.New("db down")))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "db down", got["err"])
	require.Equal(t, "m1", got["match_id"])
	require.NotNil(t, NewSlogAdapter(nil))
}

func TestLogrusAdapter_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetLevel(logrus.DebugLevel)

	l := NewLogrusAdapter(base).With(String("component", "match"))
	l.Warn("cas exhausted", Err(errors.New("boom")), Int("attempt", 3))
	require.NoError(t, l.Sync())

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "cas exhausted", got["msg"])
	require.Equal(t, "warning", got["level"])
	require.Equal(t, "match", got["component"])
	require.Equal(t, "boom", got["err"])
	require.Equal(t, float64(3), got["attempt"])
}

func TestLogrusAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetLevel(logrus.InfoLevel)

	l := NewLogrusAdapter(base)
	l.Debug("hidden")
	require.Zero(t, buf.Len())

	l.Info("shown")
	l.Error("shown too")
	require.Contains(t, buf.String(), "shown too")
}
