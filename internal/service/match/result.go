package match

import "service-courier-match/internal/domain"

// Result is the outcome of a coordinator call.
type Result struct {
	MatchID string
	Status  domain.MatchStatus
	// Waiting is set while the record is pending and the caller has confirmed.
	Waiting bool
	OrderID string
	ChatID  string
	Reason  string
	Note    string
	// AlreadyResolved is set when the record was terminal before this call
	// or another caller performed the terminal transition.
	AlreadyResolved bool
}

func resultOf(rec domain.MatchRecord, partyID string, already bool) Result {
	res := rec.ResolutionOrEmpty()
	return Result{
		MatchID:         rec.ID,
		Status:          rec.Status,
		Waiting:         rec.Status == domain.MatchPending && rec.HasConfirmed(partyID),
		OrderID:         res.OrderID,
		ChatID:          res.ChatID,
		Reason:          res.Reason,
		Note:            res.Note,
		AlreadyResolved: already,
	}
}
