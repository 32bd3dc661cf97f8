package handlers

import (
	"net/http"
	"strings"

	"service-courier-match/internal/domain"
	"service-courier-match/internal/service/match"
)

// statusWaiting is reported to a party that confirmed a still pending match.
const statusWaiting = "waiting_on_counterpart"

func (r confirmMatchRequest) toInput(partyID, idempotencyKey string) match.DecideInput {
	return match.DecideInput{
		OrderID:        strings.TrimSpace(r.OrderID),
		MatchID:        strings.TrimSpace(r.MatchID),
		PartyID:        partyID,
		Action:         domain.Decision(strings.ToLower(strings.TrimSpace(r.Action))),
		Reason:         r.Reason,
		IdempotencyKey: idempotencyKey,
	}
}

func resultToResponse(res match.Result) (int, confirmMatchResponse) {
	out := confirmMatchResponse{
		Status:          string(res.Status),
		MatchID:         res.MatchID,
		AlreadyResolved: res.AlreadyResolved,
	}
	switch res.Status {
	case domain.MatchPending:
		if res.Waiting {
			out.Status = statusWaiting
		}
		return http.StatusAccepted, out
	case domain.MatchConfirmed:
		out.OrderID = res.OrderID
		out.ChatID = res.ChatID
	default:
		out.Reason = res.Reason
		out.Note = res.Note
	}
	return http.StatusOK, out
}

func recordToView(rec domain.MatchRecord, partyID string) matchViewResponse {
	res := rec.ResolutionOrEmpty()
	return matchViewResponse{
		MatchID:        rec.ID,
		OrderID:        rec.OrderID,
		MatchedOrderID: rec.MatchedOrderID,
		RequestID:      rec.RequestID,
		FlightID:       rec.FlightID,
		Status:         string(rec.Status),
		YourDecision:   string(rec.Confirmations[partyID].Decision),
		Waiting:        rec.Status == domain.MatchPending && rec.HasConfirmed(partyID),
		Deadline:       rec.Deadline,
		CreatedOrderID: res.OrderID,
		ChatID:         res.ChatID,
		Reason:         res.Reason,
		Version:        rec.Version,
	}
}
