package models

import "time"

// WaitlistEntry is one FIFO slot request for a full event. Promoted entries
// are kept with Registered=true as an audit trail and excluded from queue
// ordering by the registered=false filter; expiry deletes the row.
type WaitlistEntry struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	EventID        string    `db:"event_id" json:"event_id"`
	DateWaitlisted time.Time `db:"date_waitlisted" json:"date_waitlisted"`
	Registered     bool      `db:"registered" json:"registered"`
}
