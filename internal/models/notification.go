package models

import "time"

// NotificationType keys the dedup guarantee: at most one notification per
// (event, type, recipient).
type NotificationType string

const (
	NotificationWaitlistOpen    NotificationType = "waitlist_open"
	NotificationWaitlistClosing NotificationType = "waitlist_closing"
	NotificationWaitlistEnded   NotificationType = "waitlist_ended"
	NotificationDisplacement    NotificationType = "displacement"
)

// Notification is a message persisted for a user; delivery is external.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	EventID   *string          `db:"event_id" json:"event_id,omitempty"`
	Type      NotificationType `db:"type" json:"type"`
	Message   string           `db:"message" json:"message"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
