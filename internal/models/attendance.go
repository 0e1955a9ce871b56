package models

import "time"

// AttendanceRecord tracks a (user, event) registration. Seq is a monotonic
// insertion sequence; displacement picks the oldest unconfirmed record by Seq
// rather than relying on storage-assigned identifiers.
type AttendanceRecord struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	EventID        string    `db:"event_id" json:"event_id"`
	HasRegistered  bool      `db:"has_registered" json:"has_registered"`
	HasAttended    bool      `db:"has_attended" json:"has_attended"`
	DateRegistered time.Time `db:"date_registered" json:"date_registered"`
	Seq            int64     `db:"seq" json:"-"`
}

// RegistrationStatus is the check-registration triple for a (user, event)
// pair.
type RegistrationStatus struct {
	IsRegistered  bool `json:"isRegistered"`
	HasRegistered bool `json:"hasRegistered"`
	HasAttended   bool `json:"hasAttended"`
}

// AttendanceUpdate is one row of a bulk approval batch.
type AttendanceUpdate struct {
	UserID        string `json:"userId" validate:"required"`
	HasRegistered bool   `json:"hasRegistered"`
}

// AttendanceCounts aggregates per-event occupancy numbers.
type AttendanceCounts struct {
	Total       int `db:"total" json:"total"`
	Registered  int `db:"registered" json:"registered"`
	Attended    int `db:"attended" json:"attended"`
	Unconfirmed int `db:"unconfirmed" json:"unconfirmed"`
}
