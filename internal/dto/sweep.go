package dto

import (
	"time"

	"github.com/campuspulse/events-api/internal/models"
)

// EventSweepResult summarises one event's reconciliation pass.
type EventSweepResult struct {
	EventID           string               `json:"eventId"`
	Phase             models.WaitlistPhase `json:"phase"`
	NotificationsSent int                  `json:"notificationsSent"`
	Absentees         int                  `json:"absentees"`
	Skipped           bool                 `json:"skipped"`
	SkipReason        string               `json:"skipReason,omitempty"`
	Error             string               `json:"error,omitempty"`
}

// SweepSummary aggregates a full sweep run.
type SweepSummary struct {
	StartedAt         time.Time          `json:"startedAt"`
	FinishedAt        time.Time          `json:"finishedAt"`
	EventsProcessed   int                `json:"eventsProcessed"`
	EventsFailed      int                `json:"eventsFailed"`
	NotificationsSent int                `json:"notificationsSent"`
	Results           []EventSweepResult `json:"results"`
}
