package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/http/middleware/auth"
	"service-courier-match/internal/logx"
)

func reqID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return "-"
}

func writeJSON(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Warn("json encode error", logx.String("req_id", reqID(r.Context())), logx.Err(err))
	}
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, msg string) {
	logger.Info("http error",
		logx.String("req_id", reqID(r.Context())),
		logx.Int("status", status),
		logx.String("msg", msg),
	)
	writeJSON(logger, w, r, status, ErrorResponse{Error: msg})
}

// writeServiceError maps a service error to its HTTP status.
func writeServiceError(logger logx.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		writeError(logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrUnauthorized):
		writeError(logger, w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, apperr.ErrForbidden):
		writeError(logger, w, r, http.StatusForbidden, "not a party of this match")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(logger, w, r, http.StatusNotFound, "match not found")
	case errors.Is(err, apperr.ErrConflict):
		writeError(logger, w, r, http.StatusConflict, "conflicting request")
	case errors.Is(err, apperr.ErrVersionConflict):
		w.Header().Set("Retry-After", "1")
		writeError(logger, w, r, http.StatusServiceUnavailable, "busy, retry")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(logger, w, r, http.StatusGatewayTimeout, "timeout")
	default:
		logger.Error("internal error", logx.String("req_id", reqID(r.Context())), logx.Err(err))
		writeError(logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

const (
	bodyLimit = 1 << 20
)

func decodeJSON[T any](logger logx.Logger, w http.ResponseWriter, r *http.Request, dst *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(logger, w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		writeError(logger, w, r, http.StatusBadRequest, "invalid json: trailing data")
		return false
	}
	return true
}

// partyOf writes 401 when the request carries no party.
func partyOf(logger logx.Logger, w http.ResponseWriter, r *http.Request) (string, bool) {
	party, ok := auth.PartyFromContext(r.Context())
	if !ok {
		writeError(logger, w, r, http.StatusUnauthorized, "unauthorized")
	}
	return party, ok
}
