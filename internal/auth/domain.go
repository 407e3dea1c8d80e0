package auth

import (
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/session"
)

// AuditEntry is one row of the session audit trail.
type AuditEntry struct {
	SessionKey string
	Event      string
	UserID     string
	Username   string
	Reason     string
	OccurredAt time.Time
}

// EntryFromEvent maps a session lifecycle event to an audit row.
func EntryFromEvent(ev session.Event, at time.Time) AuditEntry {
	return AuditEntry{
		SessionKey: ev.Key,
		Event:      string(ev.Kind),
		UserID:     ev.UserID,
		Username:   ev.Username,
		Reason:     truncate(ev.Reason, 500),
		OccurredAt: at.UTC(),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
