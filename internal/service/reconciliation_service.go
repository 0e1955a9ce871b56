package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuspulse/events-api/internal/dto"
	"github.com/campuspulse/events-api/internal/models"
	appErrors "github.com/campuspulse/events-api/pkg/errors"
	"github.com/campuspulse/events-api/pkg/jobs"
)

type sweepEventSource interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	ListActive(ctx context.Context) ([]models.Event, error)
	SyncRemainingCapacity(ctx context.Context, eventID string) (int, error)
}

type organizationDirectory interface {
	FindByName(ctx context.Context, name string) (*models.Organization, error)
}

type userDirectory interface {
	ListIDs(ctx context.Context) ([]string, error)
	ListMemberIDs(ctx context.Context, organizationIDs []string) ([]string, error)
}

type attendanceCounter interface {
	CountLiveRegistered(ctx context.Context, eventID string) (int, error)
}

type promotedCounter interface {
	CountPromotedWithAttendance(ctx context.Context, eventID string) (int, error)
}

// SweepJobType labels per-event retry jobs on the background queue.
const SweepJobType = "sweep_event"

// ReconciliationService runs the time-windowed sweep over active events:
// phase-driven waitlist notifications around each event's start time, and
// the post-close accounting that resynchronizes the capacity ledger.
type ReconciliationService struct {
	events        sweepEventSource
	organizations organizationDirectory
	users         userDirectory
	attendance    attendanceCounter
	waitlist      promotedCounter
	notifications notificationSink
	metrics       *MetricsService
	windows       models.WaitlistWindows
	workers       int
	logger        *zap.Logger
	now           func() time.Time

	retryQueue *jobs.Queue
}

// NewReconciliationService constructs ReconciliationService.
func NewReconciliationService(events sweepEventSource, organizations organizationDirectory, users userDirectory, attendance attendanceCounter, waitlist promotedCounter, notifications notificationSink, metrics *MetricsService, windows models.WaitlistWindows, workers int, logger *zap.Logger) *ReconciliationService {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		events:        events,
		organizations: organizations,
		users:         users,
		attendance:    attendance,
		waitlist:      waitlist,
		notifications: notifications,
		metrics:       metrics,
		windows:       windows,
		workers:       workers,
		logger:        logger,
		now:           time.Now,
	}
}

// SetRetryQueue attaches the background queue used to retry events that
// failed during a synchronous sweep.
func (s *ReconciliationService) SetRetryQueue(q *jobs.Queue) {
	s.retryQueue = q
}

// RunSweep processes every active event with a bounded worker pool. Events
// are isolated from each other: one failure is recorded, retried in the
// background, and never stops the batch.
func (s *ReconciliationService) RunSweep(ctx context.Context) (*dto.SweepSummary, error) {
	started := s.now()
	queryStart := time.Now()
	events, err := s.events.ListActive(ctx)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("list_active_events", time.Since(queryStart))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active events")
	}

	summary := &dto.SweepSummary{
		StartedAt: started,
		Results:   make([]dto.EventSweepResult, len(events)),
	}

	work := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				summary.Results[idx] = s.sweepOne(ctx, &events[idx])
			}
		}()
	}
	for i := range events {
		work <- i
	}
	close(work)
	wg.Wait()

	for i := range summary.Results {
		result := &summary.Results[i]
		summary.NotificationsSent += result.NotificationsSent
		if result.Error != "" {
			summary.EventsFailed++
			s.requeue(result.EventID)
			continue
		}
		summary.EventsProcessed++
	}

	summary.FinishedAt = s.now()
	if s.metrics != nil {
		s.metrics.ObserveSweep(summary.FinishedAt.Sub(started), summary.EventsProcessed, summary.EventsFailed)
	}
	s.logger.Info("reconciliation sweep finished",
		zap.Int("events_processed", summary.EventsProcessed),
		zap.Int("events_failed", summary.EventsFailed),
		zap.Int("notifications_sent", summary.NotificationsSent),
		zap.Duration("duration", summary.FinishedAt.Sub(started)))
	return summary, nil
}

// SweepEvent reconciles a single event by ID. Used by the retry queue and
// the manual per-event trigger.
func (s *ReconciliationService) SweepEvent(ctx context.Context, eventID string) (*dto.EventSweepResult, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	result := s.sweepOne(ctx, event)
	if result.Error != "" {
		return &result, fmt.Errorf("sweep event %s: %s", eventID, result.Error)
	}
	return &result, nil
}

// HandleJob adapts SweepEvent to the background queue contract.
func (s *ReconciliationService) HandleJob(ctx context.Context, job jobs.Job) error {
	_, err := s.SweepEvent(ctx, job.Payload)
	return err
}

func (s *ReconciliationService) requeue(eventID string) {
	if s.retryQueue == nil {
		return
	}
	err := s.retryQueue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    SweepJobType,
		Payload: eventID,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue sweep retry",
			zap.String("event_id", eventID), zap.Error(err))
	}
}

func (s *ReconciliationService) sweepOne(ctx context.Context, event *models.Event) dto.EventSweepResult {
	result := dto.EventSweepResult{EventID: event.ID}

	if event.IsArchived {
		result.Skipped = true
		result.SkipReason = "event is archived"
		return result
	}
	if !event.Complete() {
		result.Skipped = true
		result.SkipReason = "event is missing required fields"
		s.logger.Warn("skipping incomplete event", zap.String("event_id", event.ID))
		return result
	}
	if event.Ended(s.now()) {
		result.Skipped = true
		result.SkipReason = "event has ended"
		return result
	}

	phase := models.PhaseAt(event.DateStart, s.now(), s.windows)
	result.Phase = phase

	var notificationType models.NotificationType
	var message string
	switch phase {
	case models.PhasePendingOpen:
		return result
	case models.PhaseOpen:
		notificationType = models.NotificationWaitlistOpen
		message = fmt.Sprintf("Waitlist for %s is now open", event.Name)
	case models.PhaseClosing:
		notificationType = models.NotificationWaitlistClosing
		message = fmt.Sprintf("1 minute left to join the waitlist for %s", event.Name)
	case models.PhaseClosed:
		notificationType = models.NotificationWaitlistEnded
		message = fmt.Sprintf("The waitlist for %s has ended", event.Name)
	}

	audience, skipReason, err := s.resolveAudience(ctx, event)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if skipReason != "" {
		result.Skipped = true
		result.SkipReason = skipReason
		s.logger.Warn("skipping event with unresolvable audience",
			zap.String("event_id", event.ID), zap.String("reason", skipReason))
		return result
	}

	eventID := event.ID
	for _, userID := range audience {
		created, err := s.notifications.Create(ctx, &models.Notification{
			UserID:  userID,
			EventID: &eventID,
			Type:    notificationType,
			Message: message,
		})
		if err != nil {
			result.Error = fmt.Sprintf("notify user %s: %v", userID, err)
			return result
		}
		if created {
			result.NotificationsSent++
			if s.metrics != nil {
				s.metrics.RecordSweepNotification(string(notificationType))
			}
		}
	}

	if phase == models.PhaseClosed {
		if err := s.closeOut(ctx, event, &result); err != nil {
			result.Error = err.Error()
			return result
		}
	}
	return result
}

// closeOut settles a closed event: derive the absentee count and resync the
// capacity ledger from confirmed registrations.
func (s *ReconciliationService) closeOut(ctx context.Context, event *models.Event, result *dto.EventSweepResult) error {
	live, err := s.attendance.CountLiveRegistered(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("count live registrations: %w", err)
	}
	promoted, err := s.waitlist.CountPromotedWithAttendance(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("count promoted waitlisters: %w", err)
	}
	absentees := live - promoted
	if absentees < 0 {
		absentees = 0
	}
	result.Absentees = absentees

	remaining, err := s.events.SyncRemainingCapacity(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("resync capacity: %w", err)
	}
	s.logger.Info("event closed out",
		zap.String("event_id", event.ID),
		zap.Int("absentees", absentees),
		zap.Int("remaining_capacity", remaining))
	return nil
}

// resolveAudience determines who should hear about the event's waitlist. A
// department of "None" targets every user; otherwise membership of the
// hosting organization(s) decides. An organization name that cannot be
// resolved soft-fails the event rather than erroring the sweep.
func (s *ReconciliationService) resolveAudience(ctx context.Context, event *models.Event) ([]string, string, error) {
	if event.Department == models.DepartmentNone {
		ids, err := s.users.ListIDs(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("list users: %w", err)
		}
		return ids, "", nil
	}

	names := []string{event.Organization}
	if event.SecondOrganization != nil && strings.TrimSpace(*event.SecondOrganization) != "" {
		names = append(names, *event.SecondOrganization)
	}

	orgIDs := make([]string, 0, len(names))
	var unresolved []string
	for _, name := range names {
		org, err := s.organizations.FindByName(ctx, name)
		if err != nil {
			if err == sql.ErrNoRows {
				unresolved = append(unresolved, fmt.Sprintf("%q", name))
				continue
			}
			return nil, "", fmt.Errorf("resolve organization %q: %w", name, err)
		}
		orgIDs = append(orgIDs, org.ID)
	}
	// Only a fully unresolvable audience skips the event; a partial match
	// still notifies the members we can reach.
	if len(orgIDs) == 0 {
		return nil, fmt.Sprintf("organization %s not found", strings.Join(unresolved, ", ")), nil
	}
	if len(unresolved) > 0 {
		s.logger.Warn("notifying a partial audience",
			zap.String("event_id", event.ID),
			zap.Strings("unresolved_organizations", unresolved))
	}

	ids, err := s.users.ListMemberIDs(ctx, orgIDs)
	if err != nil {
		return nil, "", fmt.Errorf("list organization members: %w", err)
	}
	return ids, "", nil
}
