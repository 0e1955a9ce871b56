package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuspulse/events-api/internal/models"
)

func (m *mockEventRepo) ListActive(_ context.Context) ([]models.Event, error) {
	var out []models.Event
	for _, e := range m.events {
		if !e.IsArchived {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockEventRepo) SyncRemainingCapacity(_ context.Context, eventID string) (int, error) {
	e, ok := m.events[eventID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return e.RemainingCapacity, nil
}

type mockOrganizationRepo struct {
	byName map[string]*models.Organization
}

func (m *mockOrganizationRepo) FindByName(_ context.Context, name string) (*models.Organization, error) {
	if org, ok := m.byName[name]; ok {
		return org, nil
	}
	return nil, sql.ErrNoRows
}

type mockUserRepo struct {
	allIDs    []string
	memberIDs map[string][]string
	listErr   error
}

func (m *mockUserRepo) ListIDs(_ context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.allIDs, nil
}

func (m *mockUserRepo) ListMemberIDs(_ context.Context, organizationIDs []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, orgID := range organizationIDs {
		for _, userID := range m.memberIDs[orgID] {
			if !seen[userID] {
				seen[userID] = true
				out = append(out, userID)
			}
		}
	}
	return out, nil
}

var testWindows = models.WaitlistWindows{
	OpenAfter:    30 * time.Minute,
	ClosingAfter: 59 * time.Minute,
	CloseAfter:   60 * time.Minute,
}

type sweepFixture struct {
	events        *mockEventRepo
	orgs          *mockOrganizationRepo
	users         *mockUserRepo
	attendance    *mockAttendanceRepo
	waitlist      *mockWaitlistRepo
	notifications *mockNotificationRepo
	svc           *ReconciliationService
}

func newSweepFixture(events *mockEventRepo) *sweepFixture {
	f := &sweepFixture{
		events:        events,
		orgs:          &mockOrganizationRepo{byName: map[string]*models.Organization{}},
		users:         &mockUserRepo{allIDs: []string{"u1", "u2", "u3"}},
		attendance:    newMockAttendanceRepo(),
		waitlist:      newMockWaitlistRepo(),
		notifications: newMockNotificationRepo(),
	}
	f.svc = NewReconciliationService(f.events, f.orgs, f.users, f.attendance, f.waitlist, f.notifications, nil, testWindows, 2, zap.NewNop())
	return f
}

// fix the observed time relative to the event start
func (f *sweepFixture) observeAt(event *models.Event, offset time.Duration) {
	at := event.DateStart.Add(offset)
	f.svc.now = func() time.Time { return at }
}

func TestSweepOpenPhaseNotifiesEveryone(t *testing.T) {
	event := testEvent("ev-1", 2)
	f := newSweepFixture(newMockEventRepo(event))
	f.observeAt(event, 30*time.Minute)

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EventsProcessed)
	assert.Equal(t, 0, summary.EventsFailed)
	assert.Equal(t, 3, summary.NotificationsSent)

	open := f.notifications.ofType(models.NotificationWaitlistOpen)
	require.Len(t, open, 3)
	assert.Contains(t, open[0].Message, "is now open")

	// Sweeping again in the same phase sends nothing new.
	summary, err = f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.NotificationsSent)
}

func TestSweepPendingOpenPhaseSendsNothing(t *testing.T) {
	event := testEvent("ev-1", 2)
	f := newSweepFixture(newMockEventRepo(event))
	f.observeAt(event, 10*time.Minute)

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EventsProcessed)
	assert.Zero(t, summary.NotificationsSent)
}

func TestSweepClosingPhase(t *testing.T) {
	event := testEvent("ev-1", 2)
	f := newSweepFixture(newMockEventRepo(event))
	f.observeAt(event, 59*time.Minute+30*time.Second)

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.NotificationsSent)
	closing := f.notifications.ofType(models.NotificationWaitlistClosing)
	require.Len(t, closing, 3)
	assert.Contains(t, closing[0].Message, "1 minute left")
}

func TestSweepClosedPhaseSettlesEvent(t *testing.T) {
	event := testEvent("ev-1", 2)
	f := newSweepFixture(newMockEventRepo(event))
	f.observeAt(event, 90*time.Minute)

	// Two live registrants, one of them promoted off the waitlist: one
	// direct registrant never showed up.
	f.attendance.add(&models.AttendanceRecord{UserID: "u1", EventID: "ev-1", HasRegistered: true})
	f.attendance.add(&models.AttendanceRecord{UserID: "u3", EventID: "ev-1", HasRegistered: true})
	f.waitlist.add(&models.WaitlistEntry{UserID: "u3", EventID: "ev-1", Registered: true, DateWaitlisted: event.DateStart})

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	result := summary.Results[0]
	assert.Equal(t, models.PhaseClosed, result.Phase)
	assert.Equal(t, 1, result.Absentees)
	assert.Len(t, f.notifications.ofType(models.NotificationWaitlistEnded), 3)
}

func TestSweepOrganizationAudience(t *testing.T) {
	event := testEvent("ev-1", 2)
	event.Department = "Engineering"
	event.Organization = "Robotics Club"
	second := "Chess Club"
	event.SecondOrganization = &second

	f := newSweepFixture(newMockEventRepo(event))
	f.orgs.byName["Robotics Club"] = &models.Organization{ID: "org-1", Name: "Robotics Club"}
	f.orgs.byName["Chess Club"] = &models.Organization{ID: "org-2", Name: "Chess Club"}
	f.users.memberIDs = map[string][]string{
		"org-1": {"u1", "u2"},
		"org-2": {"u2", "u3"},
	}
	f.observeAt(event, 45*time.Minute)

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.NotificationsSent, "union of both organizations, deduplicated")
}

func TestSweepUnresolvableOrganizationSkips(t *testing.T) {
	event := testEvent("ev-1", 2)
	event.Department = "Engineering"
	event.Organization = "Ghost Club"

	f := newSweepFixture(newMockEventRepo(event))
	f.observeAt(event, 45*time.Minute)

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EventsProcessed)
	assert.Equal(t, 0, summary.EventsFailed)
	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].Skipped)
	assert.Contains(t, summary.Results[0].SkipReason, "Ghost Club")
	assert.Zero(t, summary.NotificationsSent)
}

func TestSweepEndedEventSkips(t *testing.T) {
	event := testEvent("ev-1", 2)
	f := newSweepFixture(newMockEventRepo(event))
	// An hour past the end date: no phase processing, no close-out rerun.
	f.observeAt(event, 3*time.Hour)

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].Skipped)
	assert.Contains(t, summary.Results[0].SkipReason, "ended")
	assert.Zero(t, summary.NotificationsSent)
}

func TestSweepPartiallyResolvableOrganizations(t *testing.T) {
	event := testEvent("ev-1", 2)
	event.Department = "Engineering"
	event.Organization = "Ghost Club"
	second := "Robotics Club"
	event.SecondOrganization = &second

	f := newSweepFixture(newMockEventRepo(event))
	f.orgs.byName["Robotics Club"] = &models.Organization{ID: "org-1", Name: "Robotics Club"}
	f.users.memberIDs = map[string][]string{"org-1": {"u1", "u2"}}
	f.observeAt(event, 45*time.Minute)

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].Skipped, "one resolvable organization is enough")
	assert.Equal(t, 2, summary.NotificationsSent)
}

func TestSweepIncompleteEventSkips(t *testing.T) {
	event := testEvent("ev-1", 2)
	event.Capacity = 0
	f := newSweepFixture(newMockEventRepo(event))
	f.observeAt(event, 45*time.Minute)

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].Skipped)
}

func TestSweepIsolatesFailingEvent(t *testing.T) {
	// ev-1 resolves its audience through the user directory, which is down;
	// ev-2 resolves through organization membership and must still proceed.
	failing := testEvent("ev-1", 2)
	healthy := testEvent("ev-2", 2)
	healthy.DateStart = failing.DateStart
	healthy.Department = "Engineering"
	healthy.Organization = "Robotics Club"

	f := newSweepFixture(newMockEventRepo(failing, healthy))
	f.users.listErr = errors.New("users table unavailable")
	f.orgs.byName["Robotics Club"] = &models.Organization{ID: "org-1", Name: "Robotics Club"}
	f.users.memberIDs = map[string][]string{"org-1": {"u1", "u2"}}
	f.observeAt(failing, 45*time.Minute)

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EventsFailed)
	assert.Equal(t, 1, summary.EventsProcessed)
	assert.Equal(t, 2, summary.NotificationsSent)
	for _, result := range summary.Results {
		if result.EventID == "ev-1" {
			assert.NotEmpty(t, result.Error)
		} else {
			assert.Empty(t, result.Error)
		}
	}
}

func TestSweepEventNotFound(t *testing.T) {
	f := newSweepFixture(newMockEventRepo())
	_, err := f.svc.SweepEvent(context.Background(), "missing")
	require.Error(t, err)
}
