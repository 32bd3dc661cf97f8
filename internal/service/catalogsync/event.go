package catalogsync

import (
	"time"
)

// Event is a single catalog change
type Event struct {
	EntryID   string    `json:"entry_id"`
	Change    string    `json:"change"`
	ChangedAt time.Time `json:"changed_at"`
}
