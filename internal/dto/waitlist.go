package dto

import "github.com/campuspulse/events-api/internal/models"

// WaitlistPosition reports where a user stands in an event's queue. Position
// is one-based; nil means the user is not in the queue.
type WaitlistPosition struct {
	Position       *int                   `json:"position"`
	TotalWaitlist  int                    `json:"totalWaitlist"`
	RemainingSlots int                    `json:"remainingSlots"`
	IsTurn         bool                   `json:"isTurn"`
	Ahead          []models.WaitlistEntry `json:"ahead"`
	Behind         []models.WaitlistEntry `json:"behind"`
	Message        string                 `json:"message"`
}

// WaitlistConfirmation is the outcome of promoting a waitlisted user.
// DisplacedUserID is set when the promotion genuinely bumped an unconfirmed
// registrant and that user was notified.
type WaitlistConfirmation struct {
	Entry           models.WaitlistEntry    `json:"entry"`
	Attendance      models.AttendanceRecord `json:"attendance"`
	DisplacedUserID *string                 `json:"displacedUserId,omitempty"`
}
