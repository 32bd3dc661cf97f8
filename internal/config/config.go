package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var flagArgs = func() []string { return os.Args[1:] }

// Config stores service settings.
type Config struct {
	Port      int
	DB        DB
	Kafka     Kafka
	Redis     Redis
	Match     Match
	Retry     Retry
	RateLimit RateLimit
	Auth      Auth
	Pprof     Pprof
	Log       Log
}

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns a postgres connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		d.User, d.Pass, net.JoinHostPort(d.Host, d.Port), d.Name)
}

// Kafka stores broker settings. Empty Brokers disables Kafka.
type Kafka struct {
	Brokers      []string
	GroupID      string
	CatalogTopic string
	NotifyTopic  string
}

// Enabled reports whether brokers are configured.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// Redis stores the event channel backend settings. Empty Addr selects the
// in-process broker.
type Redis struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Enabled reports whether a Redis address is configured.
func (r Redis) Enabled() bool { return r.Addr != "" }

// Match stores coordinator and proposer settings.
type Match struct {
	ConfirmWindow    time.Duration
	SweepInterval    time.Duration
	SweepBatch       int
	MaxCandidates    int
	OperationTimeout time.Duration
}

// Retry stores bounded backoff settings for version conflicts.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RateLimit stores HTTP rate limiter settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Auth stores party authentication settings.
type Auth struct {
	JWTSecret   string
	AllowHeader bool
}

// Pprof stores profiling listener settings.
type Pprof struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// Log stores logger settings.
type Log struct {
	Backend string
	Level   string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}

	fs := pflag.CommandLine
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.Log.Backend, "log-backend", cfg.Log.Backend, "log backend: slog or logrus")
	fs.DurationVar(&cfg.Match.ConfirmWindow, "confirm-window", cfg.Match.ConfirmWindow, "confirmation deadline for new matches")
	fs.DurationVar(&cfg.Match.SweepInterval, "sweep-interval", cfg.Match.SweepInterval, "expiry sweep interval")
	if err := fs.Parse(flagArgs()); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv reads .env and the environment only. It is used by tools that parse
// their own command line.
func LoadEnv() (*Config, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnv() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := Defaults()
	if err := fromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if p, err := strconv.Atoi(c.DB.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid POSTGRES_PORT: %q", c.DB.Port)
	}
	if c.Match.ConfirmWindow <= 0 {
		return fmt.Errorf("invalid MATCH_CONFIRM_WINDOW: %s", c.Match.ConfirmWindow)
	}
	if c.Match.SweepInterval <= 0 {
		return fmt.Errorf("invalid MATCH_SWEEP_INTERVAL: %s", c.Match.SweepInterval)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("invalid MATCH_RETRY_MAX_ATTEMPTS: %d", c.Retry.MaxAttempts)
	}
	switch c.Log.Backend {
	case LogBackendSlog, LogBackendLogrus:
	default:
		return fmt.Errorf("invalid LOG_BACKEND: %q", c.Log.Backend)
	}
	return nil
}

func fromEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	num("PORT", &cfg.Port)

	str("POSTGRES_HOST", &cfg.DB.Host)
	str("POSTGRES_PORT", &cfg.DB.Port)
	str("POSTGRES_USER", &cfg.DB.User)
	str("POSTGRES_PASSWORD", &cfg.DB.Pass)
	str("POSTGRES_DB", &cfg.DB.Name)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	str("KAFKA_GROUP_ID", &cfg.Kafka.GroupID)
	str("KAFKA_CATALOG_TOPIC", &cfg.Kafka.CatalogTopic)
	str("KAFKA_NOTIFY_TOPIC", &cfg.Kafka.NotifyTopic)

	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	num("REDIS_DB", &cfg.Redis.DB)
	str("REDIS_PREFIX", &cfg.Redis.Prefix)

	dur("MATCH_CONFIRM_WINDOW", &cfg.Match.ConfirmWindow)
	dur("MATCH_SWEEP_INTERVAL", &cfg.Match.SweepInterval)
	num("MATCH_SWEEP_BATCH", &cfg.Match.SweepBatch)
	num("MATCH_MAX_CANDIDATES", &cfg.Match.MaxCandidates)
	dur("MATCH_OPERATION_TIMEOUT", &cfg.Match.OperationTimeout)

	num("MATCH_RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts)
	dur("MATCH_RETRY_BASE_DELAY", &cfg.Retry.BaseDelay)
	dur("MATCH_RETRY_MAX_DELAY", &cfg.Retry.MaxDelay)

	flag("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	if v := os.Getenv("RATE_LIMIT_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid RATE_LIMIT_RATE: %w", err))
		} else {
			cfg.RateLimit.Rate = f
		}
	}
	num("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)
	dur("RATE_LIMIT_TTL", &cfg.RateLimit.TTL)
	num("RATE_LIMIT_MAX_BUCKETS", &cfg.RateLimit.MaxBuckets)

	str("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	flag("AUTH_ALLOW_PARTY_HEADER", &cfg.Auth.AllowHeader)

	flag("PPROF_ENABLED", &cfg.Pprof.Enabled)
	str("PPROF_ADDR", &cfg.Pprof.Addr)
	str("PPROF_USER", &cfg.Pprof.User)
	str("PPROF_PASS", &cfg.Pprof.Pass)

	str("LOG_BACKEND", &cfg.Log.Backend)
	str("LOG_LEVEL", &cfg.Log.Level)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
