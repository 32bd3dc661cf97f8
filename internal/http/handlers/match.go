package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"service-courier-match/internal/logx"
)

// MatchHandler handles HTTP requests for match confirmation.
type MatchHandler struct {
	usecase matchUsecase
	logger  logx.Logger
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(logger logx.Logger, uc matchUsecase) *MatchHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &MatchHandler{usecase: uc, logger: logger}
}

// ConfirmMatch handles POST /orders/confirm-match.
// @Summary Confirm or reject a proposed match
// @Tags matches
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "stable key of the decision"
// @Param request body confirmMatchRequest true "Decision payload"
// @Success 200 {object} confirmMatchResponse "terminal state"
// @Success 202 {object} confirmMatchResponse "waiting on the counterpart"
// @Failure 400 {object} ErrorResponse "invalid input"
// @Failure 401 {object} ErrorResponse "no party"
// @Failure 403 {object} ErrorResponse "not a party"
// @Failure 404 {object} ErrorResponse "match not found"
// @Router /orders/confirm-match [post]
func (h *MatchHandler) ConfirmMatch(w http.ResponseWriter, r *http.Request) {
	party, ok := partyOf(h.logger, w, r)
	if !ok {
		return
	}
	var req confirmMatchRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	in := req.toInput(party, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	res, err := h.usecase.Decide(r.Context(), in)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}

	status, body := resultToResponse(res)
	h.logger.Info("match decision",
		logx.String("req_id", reqID(r.Context())),
		logx.MatchID(res.MatchID),
		logx.PartyID(party),
		logx.String("action", string(in.Action)),
		logx.String("status", body.Status),
		logx.Bool("already_resolved", res.AlreadyResolved),
	)
	writeJSON(h.logger, w, r, status, body)
}

// GetMatch handles GET /orders/{orderId}/match.
// @Summary Current match of an order
// @Tags matches
// @Produce json
// @Param orderId path string true "catalog entry id"
// @Success 200 {object} matchViewResponse
// @Failure 403 {object} ErrorResponse "not a party"
// @Failure 404 {object} ErrorResponse "no match"
// @Router /orders/{orderId}/match [get]
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	party, ok := partyOf(h.logger, w, r)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid order id")
		return
	}

	rec, err := h.usecase.FindByOrder(r.Context(), orderID, party)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, recordToView(rec, party))
}
