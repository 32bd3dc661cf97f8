package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// orderNamespace seeds deterministic order ids.
var orderNamespace = uuid.MustParse("6f1c2a57-3b0e-4c4a-9a55-0d7b8e1f2c3d")

// Order is materialized once per confirmed match.
type Order struct {
	ID        string
	MatchID   string
	RequestID string
	FlightID  string
	ChatID    string
	CreatedAt time.Time
}

// ChatSession is created alongside the Order; after that it belongs to the
// messaging subsystem.
type ChatSession struct {
	ID           string
	MatchID      string
	Participants []string
	CreatedAt    time.Time
}

// DeriveOrderID returns the order id for a match. Repeated calls agree.
func DeriveOrderID(matchID string) string {
	return uuid.NewSHA1(orderNamespace, []byte(matchID)).String()
}

// chatIDEscaper keeps the separator out of the id parts, so distinct pairs
// never share a chat id.
var chatIDEscaper = strings.NewReplacer("%", "%25", "_", "%5F")

// DeriveChatID returns the chat id for a request/flight pair.
func DeriveChatID(requestID, flightID string) string {
	return "chat_" + chatIDEscaper.Replace(requestID) + "_" + chatIDEscaper.Replace(flightID)
}

// Notification is emitted to the external notifier once per terminal transition.
type Notification struct {
	EventID   string
	MatchID   string
	Type      MatchStatus
	Parties   []string
	OrderIDs  []string
	ChatID    string
	Reason    string
	CreatedAt time.Time
}

// NotificationFor builds the terminal notification of rec.
func NotificationFor(rec MatchRecord) Notification {
	res := rec.ResolutionOrEmpty()
	return Notification{
		EventID:   rec.ID + ":" + string(rec.Status),
		MatchID:   rec.ID,
		Type:      rec.Status,
		Parties:   rec.Parties(),
		OrderIDs:  []string{rec.OrderID, rec.MatchedOrderID},
		ChatID:    res.ChatID,
		Reason:    res.Reason,
		CreatedAt: res.ResolvedAt,
	}
}
