package dto

import "github.com/campuspulse/events-api/internal/models"

// RemainingSlots is the per-event occupancy breakdown served by the slots
// endpoint. Remaining is derived from attendance counts, adjusted upward by
// displaced registrants whose slots were re-admitted.
type RemainingSlots struct {
	Capacity           int                       `json:"capacity"`
	TotalRegistered    int                       `json:"totalRegistered"`
	TotalAttended      int                       `json:"totalAttended"`
	TotalPending       int                       `json:"totalPending"`
	TotalAbsent        int                       `json:"totalAbsent"`
	DisplacedUserCount int                       `json:"displacedUserCount"`
	RemainingSlots     int                       `json:"remainingSlots"`
	AttendedUsers      []models.AttendanceRecord `json:"attendedUsers"`
	PendingUsers       []models.AttendanceRecord `json:"pendingUsers"`
	AbsentUsers        []models.AttendanceRecord `json:"absentUsers"`
	DisplacedUsers     []models.AttendanceRecord `json:"displacedUsers"`
}
