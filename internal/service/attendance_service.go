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

type attendanceRegistry interface {
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.AttendanceRecord, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	Create(ctx context.Context, record *models.AttendanceRecord) error
	SetRegistered(ctx context.Context, id string, registered bool) (*models.AttendanceRecord, error)
	SetRegisteredByUserAndEvent(ctx context.Context, userID, eventID string, registered bool) (*models.AttendanceRecord, error)
	MarkAttended(ctx context.Context, userID, eventID string) (*models.AttendanceRecord, error)
	EarliestUnconfirmed(ctx context.Context, eventID string) (*models.AttendanceRecord, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceRecord, error)
	Counts(ctx context.Context, eventID string) (*models.AttendanceCounts, error)
	CountLiveRegistered(ctx context.Context, eventID string) (int, error)
	Delete(ctx context.Context, id string) (*models.AttendanceRecord, error)
}

type eventDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type capacityLedger interface {
	ClaimSlots(ctx context.Context, eventID string, n int) (int, error)
	ReleaseSlots(ctx context.Context, eventID string, n int) (int, error)
}

type notificationSink interface {
	Create(ctx context.Context, n *models.Notification) (bool, error)
	ListDisplacedUserIDs(ctx context.Context, eventID string) ([]string, error)
}

// RegisterRequest describes a registration payload.
type RegisterRequest struct {
	UserID  string `json:"userId" validate:"required"`
	EventID string `json:"eventId" validate:"required"`
}

// BulkApproveRequest carries a batch of registration approvals for one event.
type BulkApproveRequest struct {
	Attendees []models.AttendanceUpdate `json:"attendees" validate:"required,min=1,dive"`
}

// AttendanceService orchestrates registration admission, check-in, and the
// capacity-aware approval flows.
type AttendanceService struct {
	records       attendanceRegistry
	events        eventDirectory
	ledger        capacityLedger
	notifications notificationSink
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(records attendanceRegistry, events eventDirectory, ledger capacityLedger, notifications notificationSink, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		records:       records,
		events:        events,
		ledger:        ledger,
		notifications: notifications,
		cache:         cache,
		validator:     validate,
		logger:        logger,
		now:           time.Now,
	}
}

// Register admits a user to an event. On a reopened event the new registrant
// is confirmed immediately and the oldest unconfirmed registrant is notified
// that their slot may have been taken; otherwise the record starts pending
// and a full event rejects the request so the caller can join the waitlist.
func (s *AttendanceService) Register(ctx context.Context, req RegisterRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.records.FindByUserAndEvent(ctx, req.UserID, req.EventID); err == nil {
		return nil, appErrors.ErrDuplicateRegistration
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	if event.IsReopened {
		if err := s.notifyDisplaced(ctx, event); err != nil {
			return nil, err
		}
		// A reopened event is full by definition; the cut-in does not go
		// through the ledger guard.
		if _, err := s.ledger.ClaimSlots(ctx, event.ID, 1); err != nil && err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim slot")
		}
	} else {
		open, err := s.openSlots(ctx, event)
		if err != nil {
			return nil, err
		}
		if open <= 0 {
			return nil, appErrors.Clone(appErrors.ErrInsufficientCapacity, "event is full, join the waitlist instead")
		}
	}

	record := &models.AttendanceRecord{
		UserID:        req.UserID,
		EventID:       req.EventID,
		HasRegistered: event.IsReopened,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance record")
	}

	s.invalidateSlots(ctx, req.EventID)
	return record, nil
}

// CheckRegistration reports the registration triple for a (user, event) pair.
// Unknown pairs are a valid answer, not an error.
func (s *AttendanceService) CheckRegistration(ctx context.Context, userID, eventID string) (*models.RegistrationStatus, error) {
	record, err := s.records.FindByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.RegistrationStatus{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	return &models.RegistrationStatus{
		IsRegistered:  true,
		HasRegistered: record.HasRegistered,
		HasAttended:   record.HasAttended,
	}, nil
}

// MarkAttended records a check-in. Terminal for the (user, event) pair.
func (s *AttendanceService) MarkAttended(ctx context.Context, userID, eventID string) (*models.AttendanceRecord, error) {
	record, err := s.records.MarkAttended(ctx, userID, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	s.invalidateSlots(ctx, eventID)
	return record, nil
}

// SetRegistered is the admin toggle for a single record. Confirming claims a
// slot from the ledger; unconfirming restores one.
func (s *AttendanceService) SetRegistered(ctx context.Context, recordID string, registered bool) (*models.AttendanceRecord, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	if record.HasRegistered == registered {
		return record, nil
	}

	if registered {
		if _, err := s.ledger.ClaimSlots(ctx, record.EventID, 1); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.ErrInsufficientCapacity
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim slot")
		}
	} else {
		if _, err := s.ledger.ReleaseSlots(ctx, record.EventID, 1); err != nil && err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release slot")
		}
	}

	updated, err := s.records.SetRegistered(ctx, recordID, registered)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance record")
	}
	s.invalidateSlots(ctx, record.EventID)
	return updated, nil
}

// BulkApprove applies a batch of approvals atomically against the ledger:
// only pending→confirmed transitions consume capacity, and a shortfall
// rejects the whole batch so operators can adjust and retry.
func (s *AttendanceService) BulkApprove(ctx context.Context, eventID string, req BulkApproveRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}

	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	approvals := 0
	for _, update := range req.Attendees {
		record, err := s.records.FindByUserAndEvent(ctx, update.UserID, eventID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("attendance record not found for user %s", update.UserID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
		}
		if update.HasRegistered && !record.HasRegistered {
			approvals++
		}
	}

	if approvals > 0 {
		if _, err := s.ledger.ClaimSlots(ctx, eventID, approvals); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrInsufficientCapacity, "not enough capacity for all selected users")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim slots")
		}
	}

	for _, update := range req.Attendees {
		if _, err := s.records.SetRegisteredByUserAndEvent(ctx, update.UserID, eventID, update.HasRegistered); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply attendance update")
		}
	}

	s.invalidateSlots(ctx, eventID)
	return nil
}

// RemainingSlots builds the occupancy breakdown for an event. The figure is
// derived from attendance records; displaced registrants on a reopened event
// are handed their slot back in the arithmetic.
func (s *AttendanceService) RemainingSlots(ctx context.Context, eventID string) (*dto.RemainingSlots, error) {
	if s.cache.Enabled() {
		var cached dto.RemainingSlots
		if hit, _ := s.cache.Get(ctx, SlotsKey(eventID), &cached); hit {
			return &cached, nil
		}
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !event.Complete() {
		return nil, appErrors.ErrMissingEventFields
	}

	records, err := s.records.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	displaced := map[string]bool{}
	if event.IsReopened {
		displacedIDs, err := s.notifications.ListDisplacedUserIDs(ctx, eventID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list displaced users")
		}
		for _, id := range displacedIDs {
			displaced[id] = true
		}
	}

	now := s.now()
	ended := event.Ended(now)
	summary := &dto.RemainingSlots{
		Capacity:        event.Capacity,
		TotalRegistered: len(records),
		AttendedUsers:   []models.AttendanceRecord{},
		PendingUsers:    []models.AttendanceRecord{},
		AbsentUsers:     []models.AttendanceRecord{},
		DisplacedUsers:  []models.AttendanceRecord{},
	}
	for _, record := range records {
		switch {
		case displaced[record.UserID]:
			summary.DisplacedUsers = append(summary.DisplacedUsers, record)
		case record.HasAttended:
			summary.AttendedUsers = append(summary.AttendedUsers, record)
		case ended:
			summary.AbsentUsers = append(summary.AbsentUsers, record)
		default:
			summary.PendingUsers = append(summary.PendingUsers, record)
		}
	}
	summary.TotalAttended = len(summary.AttendedUsers)
	summary.TotalPending = len(summary.PendingUsers)
	summary.TotalAbsent = len(summary.AbsentUsers)
	summary.DisplacedUserCount = len(summary.DisplacedUsers)

	remaining := event.Capacity - summary.TotalRegistered + summary.DisplacedUserCount
	if remaining < 0 {
		remaining = 0
	}
	summary.RemainingSlots = remaining

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, SlotsKey(eventID), summary, 0)
	}
	return summary, nil
}

// Counts returns the raw per-event attendance counters.
func (s *AttendanceService) Counts(ctx context.Context, eventID string) (*models.AttendanceCounts, error) {
	counts, err := s.records.Counts(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	return counts, nil
}

// Unattended lists confirmed registrants who have not shown up yet.
func (s *AttendanceService) Unattended(ctx context.Context, eventID string) ([]models.AttendanceRecord, error) {
	records, err := s.records.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	missing := make([]models.AttendanceRecord, 0, len(records))
	for _, record := range records {
		if record.HasRegistered && !record.HasAttended {
			missing = append(missing, record)
		}
	}
	return missing, nil
}

// Delete removes a record outright. A confirmed registrant's slot goes back
// to the ledger.
func (s *AttendanceService) Delete(ctx context.Context, recordID string) error {
	record, err := s.records.Delete(ctx, recordID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance record")
	}
	if record.HasRegistered {
		if _, err := s.ledger.ReleaseSlots(ctx, record.EventID, 1); err != nil && err != sql.ErrNoRows {
			s.logger.Warn("failed to release slot after delete",
				zap.String("event_id", record.EventID), zap.Error(err))
		}
	}
	s.invalidateSlots(ctx, record.EventID)
	return nil
}

// notifyDisplaced flags the oldest unconfirmed registrant of a reopened
// event. Advisory only: the record is not demoted.
func (s *AttendanceService) notifyDisplaced(ctx context.Context, event *models.Event) error {
	candidate, err := s.records.EarliestUnconfirmed(ctx, event.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find displacement candidate")
	}

	eventID := event.ID
	created, err := s.notifications.Create(ctx, &models.Notification{
		UserID:  candidate.UserID,
		EventID: &eventID,
		Type:    models.NotificationDisplacement,
		Message: fmt.Sprintf("Your slot for %q may have been taken due to event reopening.", event.Name),
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create displacement notification")
	}
	if created {
		s.logger.Info("displacement notification sent",
			zap.String("event_id", event.ID), zap.String("user_id", candidate.UserID))
	}
	return nil
}

// openSlots derives the record-based remaining figure used for admission.
func (s *AttendanceService) openSlots(ctx context.Context, event *models.Event) (int, error) {
	counts, err := s.records.Counts(ctx, event.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	open := event.Capacity - counts.Total
	if open < 0 {
		open = 0
	}
	return open, nil
}

func (s *AttendanceService) invalidateSlots(ctx context.Context, eventID string) {
	if s.cache.Enabled() {
		s.cache.Invalidate(ctx, SlotsKey(eventID))
	}
}
