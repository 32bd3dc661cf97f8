package config

import "time"

// Log backends
const (
	LogBackendSlog   = "slog"
	LogBackendLogrus = "logrus"
)

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "test_db",
}

var defaultKafka = Kafka{
	GroupID:      "service-courier-match",
	CatalogTopic: "catalog.changes",
	NotifyTopic:  "match.notifications",
}

var defaultMatch = Match{
	ConfirmWindow:    15 * time.Minute,
	SweepInterval:    10 * time.Second,
	SweepBatch:       100,
	MaxCandidates:    5,
	OperationTimeout: 3 * time.Second,
}

var defaultRetry = Retry{
	MaxAttempts: 8,
	BaseDelay:   10 * time.Millisecond,
	MaxDelay:    200 * time.Millisecond,
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       5,
	Burst:      10,
	TTL:        5 * time.Minute,
	MaxBuckets: 10000,
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Port:      defaultPort,
		DB:        defaultDB,
		Kafka:     defaultKafka,
		Redis:     Redis{Prefix: "match"},
		Match:     defaultMatch,
		Retry:     defaultRetry,
		RateLimit: defaultRateLimit,
		Auth:      Auth{AllowHeader: true},
		Pprof:     Pprof{Addr: "127.0.0.1:6060"},
		Log:       Log{Backend: LogBackendSlog, Level: "info"},
	}
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultMatch returns the default match settings.
func DefaultMatch() Match {
	return defaultMatch
}

// DefaultRetry returns the default retry settings.
func DefaultRetry() Retry {
	return defaultRetry
}
