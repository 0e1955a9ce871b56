package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuspulse/events-api/internal/dto"
	"github.com/campuspulse/events-api/internal/models"
	appErrors "github.com/campuspulse/events-api/pkg/errors"
)

type waitlistStore interface {
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.WaitlistEntry, error)
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	ListQueue(ctx context.Context, eventID string) ([]models.WaitlistEntry, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.WaitlistEntry, error)
	First(ctx context.Context, eventID string) (*models.WaitlistEntry, error)
	MarkRegistered(ctx context.Context, userID, eventID string) (*models.WaitlistEntry, error)
	Delete(ctx context.Context, userID, eventID string) error
}

type attendanceConfirmer interface {
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.AttendanceRecord, error)
	UpsertConfirmed(ctx context.Context, userID, eventID string) (*models.AttendanceRecord, error)
	EarliestUnconfirmed(ctx context.Context, eventID string) (*models.AttendanceRecord, error)
	Counts(ctx context.Context, eventID string) (*models.AttendanceCounts, error)
	CountLiveRegistered(ctx context.Context, eventID string) (int, error)
}

// JoinWaitlistRequest is the payload for entering an event's queue.
type JoinWaitlistRequest struct {
	UserID  string `json:"userId" validate:"required"`
	EventID string `json:"eventId" validate:"required"`
}

// ConfirmWaitlistRequest is the payload for claiming a promoted slot.
type ConfirmWaitlistRequest struct {
	UserID  string `json:"userId" validate:"required"`
	EventID string `json:"eventId" validate:"required"`
}

// WaitlistService manages the per-event FIFO queue: joining, position
// lookups, promotion into attendance, and expiry.
type WaitlistService struct {
	waitlist      waitlistStore
	records       attendanceConfirmer
	events        eventDirectory
	ledger        capacityLedger
	notifications notificationSink
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewWaitlistService constructs WaitlistService.
func NewWaitlistService(waitlist waitlistStore, records attendanceConfirmer, events eventDirectory, ledger capacityLedger, notifications notificationSink, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *WaitlistService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaitlistService{
		waitlist:      waitlist,
		records:       records,
		events:        events,
		ledger:        ledger,
		notifications: notifications,
		cache:         cache,
		validator:     validate,
		logger:        logger,
	}
}

// Join appends a user to the event's queue. Queue order is the join
// timestamp, assigned here.
func (s *WaitlistService) Join(ctx context.Context, req JoinWaitlistRequest) (*models.WaitlistEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid waitlist payload")
	}

	// A registration and a queue slot are mutually exclusive.
	if _, err := s.records.FindByUserAndEvent(ctx, req.UserID, req.EventID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRegistration, "user is already registered, no need to join the waitlist")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}

	if _, err := s.waitlist.FindByUserAndEvent(ctx, req.UserID, req.EventID); err == nil {
		return nil, appErrors.ErrAlreadyWaitlisted
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check waitlist")
	}

	if _, err := s.events.FindByID(ctx, req.EventID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	entry := &models.WaitlistEntry{
		UserID:         req.UserID,
		EventID:        req.EventID,
		DateWaitlisted: time.Now().UTC(),
	}
	if err := s.waitlist.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join waitlist")
	}
	return entry, nil
}

// Position computes where a user stands in the queue. Remaining capacity is
// derived live from confirmed-but-unattended registrants, so the head of the
// queue learns it is their turn the moment a slot frees up.
func (s *WaitlistService) Position(ctx context.Context, eventID, userID string) (*dto.WaitlistPosition, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.Capacity <= 0 {
		return nil, appErrors.ErrMissingEventFields
	}

	live, err := s.records.CountLiveRegistered(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	remaining := event.Capacity - live
	if remaining < 0 {
		remaining = 0
	}

	queue, err := s.waitlist.ListQueue(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}

	result := &dto.WaitlistPosition{
		TotalWaitlist:  len(queue),
		RemainingSlots: remaining,
		Ahead:          []models.WaitlistEntry{},
		Behind:         []models.WaitlistEntry{},
	}

	idx := -1
	for i, entry := range queue {
		if entry.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		result.Message = "user is not in the waitlist for this event"
		return result, nil
	}

	position := idx + 1
	result.Position = &position
	result.Ahead = queue[:idx]
	result.Behind = queue[idx+1:]
	result.IsTurn = idx == 0 && remaining > 0

	switch {
	case result.IsTurn:
		result.Message = "it is your turn, confirm your slot now"
	case remaining > 0:
		result.Message = fmt.Sprintf("%d user(s) ahead of you", idx)
	default:
		result.Message = "the event is currently full, hold your position"
	}
	return result, nil
}

// Confirm promotes a waitlisted user into a confirmed registration. The
// queue entry is kept as an audit trail, the attendance record is created or
// upgraded, and if the promotion genuinely bumps an unconfirmed registrant
// that registrant is notified exactly once.
func (s *WaitlistService) Confirm(ctx context.Context, req ConfirmWaitlistRequest) (*dto.WaitlistConfirmation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid confirmation payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	existing, err := s.waitlist.FindByUserAndEvent(ctx, req.UserID, req.EventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNotInWaitlist
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check waitlist")
	}
	// A repeat confirm reports the promoted state without claiming a second
	// slot or re-running the displacement check.
	if existing.Registered {
		record, err := s.records.UpsertConfirmed(ctx, req.UserID, req.EventID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm attendance")
		}
		return &dto.WaitlistConfirmation{Entry: *existing, Attendance: *record}, nil
	}

	// Snapshot the displacement candidate before the promotion lands, so the
	// promoted user's own fresh record can never be mistaken for it.
	candidate, err := s.records.EarliestUnconfirmed(ctx, req.EventID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find displacement candidate")
	}
	counts, err := s.records.Counts(ctx, req.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}

	entry, err := s.waitlist.MarkRegistered(ctx, req.UserID, req.EventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNotInWaitlist
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote waitlist entry")
	}

	record, err := s.records.UpsertConfirmed(ctx, req.UserID, req.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm attendance")
	}

	// Claim a slot when one is free; a promotion into a full event leaves
	// the ledger untouched rather than driving it negative.
	if _, err := s.ledger.ClaimSlots(ctx, req.EventID, 1); err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim slot")
	}

	confirmation := &dto.WaitlistConfirmation{Entry: *entry, Attendance: *record}
	if isGenuineDisplacement(event, candidate, entry, counts.Total) {
		eventID := event.ID
		created, err := s.notifications.Create(ctx, &models.Notification{
			UserID:  candidate.UserID,
			EventID: &eventID,
			Type:    models.NotificationDisplacement,
			Message: fmt.Sprintf("Your slot for %q may have been taken due to event reopening.", event.Name),
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create displacement notification")
		}
		if created {
			userID := candidate.UserID
			confirmation.DisplacedUserID = &userID
			s.logger.Info("waitlist promotion displaced an unconfirmed registrant",
				zap.String("event_id", event.ID),
				zap.String("promoted_user_id", req.UserID),
				zap.String("displaced_user_id", candidate.UserID))
		}
	}

	if s.cache.Enabled() {
		s.cache.Invalidate(ctx, SlotsKey(req.EventID))
	}
	return confirmation, nil
}

// Expire removes a queue entry whose turn lapsed. The delete is hard: a
// second expiry of the same entry reports not-found.
func (s *WaitlistService) Expire(ctx context.Context, userID, eventID string) error {
	if err := s.waitlist.Delete(ctx, userID, eventID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.ErrNotInWaitlist
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire waitlist entry")
	}
	s.logger.Info("waitlist entry expired",
		zap.String("event_id", eventID), zap.String("user_id", userID))
	return nil
}

// Check reports whether a user holds a queue entry for an event.
func (s *WaitlistService) Check(ctx context.Context, userID, eventID string) (*models.WaitlistEntry, bool, error) {
	entry, err := s.waitlist.FindByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check waitlist")
	}
	return entry, true, nil
}

// First returns the earliest entry for an event.
func (s *WaitlistService) First(ctx context.Context, eventID string) (*models.WaitlistEntry, error) {
	entry, err := s.waitlist.First(ctx, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "waitlist is empty")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist")
	}
	return entry, nil
}

// ListByEvent returns every entry for an event, promoted ones included.
func (s *WaitlistService) ListByEvent(ctx context.Context, eventID string) ([]models.WaitlistEntry, error) {
	entries, err := s.waitlist.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}
	return entries, nil
}

// isGenuineDisplacement decides whether a promotion actually bumped someone:
// there must be an unconfirmed registrant other than the promoted user, the
// promotion must have landed, and the event must have been full at the time
// the promotion started.
func isGenuineDisplacement(event *models.Event, candidate *models.AttendanceRecord, promoted *models.WaitlistEntry, occupancy int) bool {
	if candidate == nil || promoted == nil || !promoted.Registered {
		return false
	}
	if candidate.UserID == promoted.UserID {
		return false
	}
	if candidate.HasRegistered {
		return false
	}
	return occupancy >= event.Capacity
}
