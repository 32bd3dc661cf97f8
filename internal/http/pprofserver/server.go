// Package pprofserver serves runtime profiles on a separate listener.
package pprofserver

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const realm = "service-match debug"

// Config stores pprof server settings. The server is disabled when Addr is
// empty.
type Config struct {
	Addr string
	User string
	Pass string
}

// NewServer returns the debug server, or nil when it is disabled.
func NewServer(cfg Config) *http.Server {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           Handler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Handler mounts the chi profiler under /debug (pprof and expvar).
// Loopback callers skip basic auth; without credentials everyone else gets 401.
func Handler(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(loopbackOr(middleware.BasicAuth(realm, credentials(cfg))))
	r.Mount("/debug", middleware.Profiler())
	return r
}

func credentials(cfg Config) map[string]string {
	if cfg.User == "" || cfg.Pass == "" {
		return map[string]string{}
	}
	return map[string]string{cfg.User: cfg.Pass}
}

func loopbackOr(guard func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		guarded := guard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isLoopback(r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

func isLoopback(remoteAddr string) bool {
	host := strings.TrimSpace(remoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
