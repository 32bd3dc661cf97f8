package kafka

import (
	"strings"
	"time"

	"service-courier-match/internal/domain"
	"service-courier-match/internal/service/catalogsync"
)

// EventDTO is a data transfer object for catalogsync.Event
type EventDTO struct {
	EntryID   string    `json:"entry_id"`
	Change    string    `json:"change"`
	ChangedAt time.Time `json:"changed_at"`
}

// ToDomain converts EventDTO to catalogsync.Event
func ToDomain(dto EventDTO) catalogsync.Event {
	return catalogsync.Event{
		EntryID:   strings.TrimSpace(dto.EntryID),
		Change:    strings.TrimSpace(dto.Change),
		ChangedAt: dto.ChangedAt,
	}
}

// NotificationDTO is the payload published for every terminal match transition.
type NotificationDTO struct {
	EventID  string   `json:"event_id"`
	MatchID  string   `json:"match_id"`
	Type     string   `json:"type"`
	Parties  []string `json:"parties"`
	OrderIDs []string `json:"order_ids"`
	ChatID   string   `json:"chat_id,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	// CreatedAt is when the transition happened.
	CreatedAt time.Time `json:"created_at"`
}

// FromNotification converts domain.Notification to NotificationDTO
func FromNotification(n domain.Notification) NotificationDTO {
	return NotificationDTO{
		EventID:   n.EventID,
		MatchID:   n.MatchID,
		Type:      string(n.Type),
		Parties:   n.Parties,
		OrderIDs:  n.OrderIDs,
		ChatID:    n.ChatID,
		Reason:    n.Reason,
		CreatedAt: n.CreatedAt.UTC(),
	}
}
