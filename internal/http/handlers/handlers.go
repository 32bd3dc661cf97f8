package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"service-courier-match/internal/logx"
)

const readyTimeout = 2 * time.Second

// ReadyCheck probes one dependency the service cannot serve matches without.
type ReadyCheck func(ctx context.Context) error

// Handlers holds the service-level HTTP handlers.
type Handlers struct {
	Logger logx.Logger
	checks map[string]ReadyCheck
}

// New creates a Handlers instance. A nil logger discards output.
func New(logger logx.Logger) *Handlers {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Handlers{Logger: logger, checks: map[string]ReadyCheck{}}
}

// WithCheck registers a readiness probe under name. A nil check is ignored.
func (h *Handlers) WithCheck(name string, check ReadyCheck) *Handlers {
	if check != nil {
		h.checks[name] = check
	}
	return h
}

// Ping handles GET /ping and returns 200 with {"message":"pong"}.
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Logger, w, r, http.StatusOK, map[string]string{"message": "pong"})
}

// HealthcheckHead handles HEAD /healthcheck and returns 204 No Content.
func (h *Handlers) HealthcheckHead(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Ready handles GET /readyz: 200 when every probe passes, 503 otherwise.
// The body maps probe names to "ok" or the error text.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	body := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			body[name] = err.Error()
			h.Logger.Warn("readiness probe failed", logx.String("probe", name), logx.Err(err))
			continue
		}
		body[name] = "ok"
	}
	writeJSON(h.Logger, w, r, status, body)
}

// NotFound returns a JSON 404 error for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(h.Logger, w, r, http.StatusNotFound, "route not found")
}
