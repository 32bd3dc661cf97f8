package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"service-courier-match/internal/config"
	"service-courier-match/internal/logx"
)

// NewLogger builds the logger selected by cfg.Log.
func NewLogger(cfg *config.Config) logx.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.Config, w io.Writer) logx.Logger {
	level := "info"
	backend := config.LogBackendSlog
	if cfg != nil {
		if cfg.Log.Level != "" {
			level = strings.ToLower(cfg.Log.Level)
		}
		if cfg.Log.Backend != "" {
			backend = cfg.Log.Backend
		}
	}

	if backend == config.LogBackendLogrus {
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.JSONFormatter{})
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.InfoLevel
		}
		l.SetLevel(lvl)
		return logx.NewLogrusAdapter(l)
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	base := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	}))
	return logx.NewSlogAdapter(base)
}
