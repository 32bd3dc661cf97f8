package handlers

import "time"

type confirmMatchRequest struct {
	OrderID string `json:"orderId"`
	MatchID string `json:"matchId,omitempty"`
	Action  string `json:"action"`
	Reason  string `json:"reason,omitempty"`
}

type confirmMatchResponse struct {
	Status          string `json:"status"`
	MatchID         string `json:"match_id"`
	OrderID         string `json:"order_id,omitempty"`
	ChatID          string `json:"chat_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Note            string `json:"note,omitempty"`
	AlreadyResolved bool   `json:"already_resolved,omitempty"`
}

type matchViewResponse struct {
	MatchID        string    `json:"match_id"`
	OrderID        string    `json:"order_id"`
	MatchedOrderID string    `json:"matched_order_id"`
	RequestID      string    `json:"request_id"`
	FlightID       string    `json:"flight_id"`
	Status         string    `json:"status"`
	YourDecision   string    `json:"your_decision,omitempty"`
	Waiting        bool      `json:"waiting_on_counterpart"`
	Deadline       time.Time `json:"deadline"`
	CreatedOrderID string    `json:"created_order_id,omitempty"`
	ChatID         string    `json:"chat_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Version        int64     `json:"version"`
}
