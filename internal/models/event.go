package models

import "time"

// DepartmentNone marks an event open to the whole campus rather than a
// specific department's organizations.
const DepartmentNone = "None"

// Event represents a campus event with a fixed capacity. The
// remaining_capacity column is a ledger cache; attendance counts are the
// source of truth and the sweep resyncs the ledger from them.
type Event struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Description        string    `db:"description" json:"description"`
	Organization       string    `db:"organization" json:"organization"`
	SecondOrganization *string   `db:"second_organization" json:"second_organization,omitempty"`
	Department         string    `db:"department" json:"department"`
	Location           string    `db:"location" json:"location"`
	DateStart          time.Time `db:"date_start" json:"date_start"`
	DateEnd            time.Time `db:"date_end" json:"date_end"`
	Capacity           int       `db:"capacity" json:"capacity"`
	RemainingCapacity  int       `db:"remaining_capacity" json:"remaining_capacity"`
	IsArchived         bool      `db:"is_archived" json:"is_archived"`
	IsReopened         bool      `db:"is_reopened" json:"is_reopened"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Complete reports whether the event carries the fields the capacity engine
// needs. Events created before the capacity rollout may miss them.
func (e *Event) Complete() bool {
	return e != nil && e.Capacity > 0 && !e.DateStart.IsZero() && !e.DateEnd.IsZero()
}

// Ended reports whether the event is past its end date.
func (e *Event) Ended(now time.Time) bool {
	return !now.Before(e.DateEnd)
}

// WaitlistPhase is the waitlist lifecycle state derived from the current time
// relative to the event start. It is never persisted.
type WaitlistPhase string

const (
	PhasePendingOpen WaitlistPhase = "pending_open"
	PhaseOpen        WaitlistPhase = "open"
	PhaseClosing     WaitlistPhase = "closing"
	PhaseClosed      WaitlistPhase = "closed"
)

// WaitlistWindows holds the offsets of the phase boundaries relative to an
// event's start time.
type WaitlistWindows struct {
	OpenAfter    time.Duration
	ClosingAfter time.Duration
	CloseAfter   time.Duration
}

// PhaseAt derives the waitlist phase for an event started at start, observed
// at now.
func PhaseAt(start, now time.Time, w WaitlistWindows) WaitlistPhase {
	switch {
	case now.Before(start.Add(w.OpenAfter)):
		return PhasePendingOpen
	case now.Before(start.Add(w.ClosingAfter)):
		return PhaseOpen
	case now.Before(start.Add(w.CloseAfter)):
		return PhaseClosing
	default:
		return PhaseClosed
	}
}
