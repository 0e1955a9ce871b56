package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuspulse/events-api/internal/models"
	appErrors "github.com/campuspulse/events-api/pkg/errors"
)

type mockWaitlistRepo struct {
	entries map[string]*models.WaitlistEntry
}

func newMockWaitlistRepo() *mockWaitlistRepo {
	return &mockWaitlistRepo{entries: make(map[string]*models.WaitlistEntry)}
}

func (m *mockWaitlistRepo) add(entry *models.WaitlistEntry) *models.WaitlistEntry {
	if entry.ID == "" {
		entry.ID = "wl-" + entry.UserID
	}
	m.entries[attendanceKey(entry.UserID, entry.EventID)] = entry
	return entry
}

func (m *mockWaitlistRepo) FindByUserAndEvent(_ context.Context, userID, eventID string) (*models.WaitlistEntry, error) {
	if e, ok := m.entries[attendanceKey(userID, eventID)]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockWaitlistRepo) Create(_ context.Context, entry *models.WaitlistEntry) error {
	m.add(entry)
	return nil
}

func (m *mockWaitlistRepo) sorted(eventID string, pendingOnly bool) []models.WaitlistEntry {
	var out []models.WaitlistEntry
	for _, e := range m.entries {
		if e.EventID != eventID {
			continue
		}
		if pendingOnly && e.Registered {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateWaitlisted.Before(out[j].DateWaitlisted) })
	return out
}

func (m *mockWaitlistRepo) ListQueue(_ context.Context, eventID string) ([]models.WaitlistEntry, error) {
	return m.sorted(eventID, true), nil
}

func (m *mockWaitlistRepo) ListByEvent(_ context.Context, eventID string) ([]models.WaitlistEntry, error) {
	return m.sorted(eventID, false), nil
}

func (m *mockWaitlistRepo) First(_ context.Context, eventID string) (*models.WaitlistEntry, error) {
	all := m.sorted(eventID, false)
	if len(all) == 0 {
		return nil, sql.ErrNoRows
	}
	return &all[0], nil
}

func (m *mockWaitlistRepo) MarkRegistered(_ context.Context, userID, eventID string) (*models.WaitlistEntry, error) {
	if e, ok := m.entries[attendanceKey(userID, eventID)]; ok {
		e.Registered = true
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockWaitlistRepo) Delete(_ context.Context, userID, eventID string) error {
	key := attendanceKey(userID, eventID)
	if _, ok := m.entries[key]; !ok {
		return sql.ErrNoRows
	}
	delete(m.entries, key)
	return nil
}

func (m *mockWaitlistRepo) CountPromotedWithAttendance(_ context.Context, eventID string) (int, error) {
	count := 0
	for _, e := range m.entries {
		if e.EventID == eventID && e.Registered {
			count++
		}
	}
	return count, nil
}

func newWaitlistServiceForTest(waitlist *mockWaitlistRepo, records *mockAttendanceRepo, events *mockEventRepo, notifications *mockNotificationRepo) *WaitlistService {
	return NewWaitlistService(waitlist, records, events, events, notifications, nil, validator.New(), zap.NewNop())
}

func waitlistAt(userID, eventID string, offset time.Duration) *models.WaitlistEntry {
	return &models.WaitlistEntry{
		UserID:         userID,
		EventID:        eventID,
		DateWaitlisted: time.Unix(1700000000, 0).Add(offset),
	}
}

func TestWaitlistServiceJoin(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(waitlist, newMockAttendanceRepo(), events, newMockNotificationRepo())

	entry, err := svc.Join(context.Background(), JoinWaitlistRequest{UserID: "u1", EventID: "ev-1"})
	require.NoError(t, err)
	assert.False(t, entry.Registered)
	assert.False(t, entry.DateWaitlisted.IsZero())

	_, err = svc.Join(context.Background(), JoinWaitlistRequest{UserID: "u1", EventID: "ev-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyWaitlisted.Code, appErrors.FromError(err).Code)
}

func TestWaitlistServiceJoinAlreadyRegistered(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	records := newMockAttendanceRepo()
	records.add(&models.AttendanceRecord{UserID: "u1", EventID: "ev-1", HasRegistered: true})
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(waitlist, records, events, newMockNotificationRepo())

	_, err := svc.Join(context.Background(), JoinWaitlistRequest{UserID: "u1", EventID: "ev-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateRegistration.Code, appErrors.FromError(err).Code)

	// A pending registration blocks the queue just the same.
	records.add(&models.AttendanceRecord{UserID: "u2", EventID: "ev-1"})
	_, err = svc.Join(context.Background(), JoinWaitlistRequest{UserID: "u2", EventID: "ev-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateRegistration.Code, appErrors.FromError(err).Code)

	_, found, err := svc.Check(context.Background(), "u1", "ev-1")
	require.NoError(t, err)
	assert.False(t, found, "no entry is created for a registered user")
}

func TestWaitlistServicePosition(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	waitlist.add(waitlistAt("u1", "ev-1", 0))
	waitlist.add(waitlistAt("u2", "ev-1", time.Minute))
	waitlist.add(waitlistAt("u3", "ev-1", 2*time.Minute))

	records := newMockAttendanceRepo()
	records.add(&models.AttendanceRecord{UserID: "a1", EventID: "ev-1", HasRegistered: true})
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(waitlist, records, events, newMockNotificationRepo())

	position, err := svc.Position(context.Background(), "ev-1", "u2")
	require.NoError(t, err)
	require.NotNil(t, position.Position)
	assert.Equal(t, 2, *position.Position)
	assert.Equal(t, 3, position.TotalWaitlist)
	assert.Equal(t, 1, position.RemainingSlots)
	assert.False(t, position.IsTurn)
	require.Len(t, position.Ahead, 1)
	assert.Equal(t, "u1", position.Ahead[0].UserID)
	require.Len(t, position.Behind, 1)
	assert.Equal(t, "u3", position.Behind[0].UserID)
}

func TestWaitlistServicePositionHeadTurn(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	waitlist.add(waitlistAt("u1", "ev-1", 0))
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(waitlist, newMockAttendanceRepo(), events, newMockNotificationRepo())

	position, err := svc.Position(context.Background(), "ev-1", "u1")
	require.NoError(t, err)
	require.NotNil(t, position.Position)
	assert.Equal(t, 1, *position.Position)
	assert.True(t, position.IsTurn)
}

func TestWaitlistServicePositionFullEventNotTurn(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	waitlist.add(waitlistAt("u1", "ev-1", 0))

	records := newMockAttendanceRepo()
	records.add(&models.AttendanceRecord{UserID: "a1", EventID: "ev-1", HasRegistered: true})
	records.add(&models.AttendanceRecord{UserID: "a2", EventID: "ev-1", HasRegistered: true})
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(waitlist, records, events, newMockNotificationRepo())

	position, err := svc.Position(context.Background(), "ev-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, position.RemainingSlots)
	assert.False(t, position.IsTurn, "head of queue must wait while the event is full")
}

func TestWaitlistServicePositionAttendedFreesSlot(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	waitlist.add(waitlistAt("u1", "ev-1", 0))

	// A checked-in registrant no longer occupies a live slot.
	records := newMockAttendanceRepo()
	records.add(&models.AttendanceRecord{UserID: "a1", EventID: "ev-1", HasRegistered: true, HasAttended: true})
	records.add(&models.AttendanceRecord{UserID: "a2", EventID: "ev-1", HasRegistered: true})
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(waitlist, records, events, newMockNotificationRepo())

	position, err := svc.Position(context.Background(), "ev-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, position.RemainingSlots)
	assert.True(t, position.IsTurn)
}

func TestWaitlistServicePositionUserAbsent(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	waitlist.add(waitlistAt("u1", "ev-1", 0))
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(waitlist, newMockAttendanceRepo(), events, newMockNotificationRepo())

	position, err := svc.Position(context.Background(), "ev-1", "u9")
	require.NoError(t, err)
	assert.Nil(t, position.Position)
	assert.False(t, position.IsTurn)
	assert.NotEmpty(t, position.Message)
}

func TestWaitlistServiceConfirm(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	waitlist.add(waitlistAt("u3", "ev-1", 0))

	records := newMockAttendanceRepo()
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(waitlist, records, events, newMockNotificationRepo())

	confirmation, err := svc.Confirm(context.Background(), ConfirmWaitlistRequest{UserID: "u3", EventID: "ev-1"})
	require.NoError(t, err)
	assert.True(t, confirmation.Entry.Registered, "entry is kept and flagged, not deleted")
	assert.True(t, confirmation.Attendance.HasRegistered)
	assert.Nil(t, confirmation.DisplacedUserID, "no displacement on an open event")

	// The entry survives promotion and is excluded from the pending queue.
	entry, found, err := svc.Check(context.Background(), "u3", "ev-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, entry.Registered)
	queue, err := waitlist.ListQueue(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestWaitlistServiceConfirmDisplacement(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	waitlist.add(waitlistAt("u3", "ev-1", 0))

	// Full event: two records, the earliest never confirmed.
	records := newMockAttendanceRepo()
	records.add(&models.AttendanceRecord{UserID: "u1", EventID: "ev-1"})
	records.add(&models.AttendanceRecord{UserID: "u2", EventID: "ev-1", HasRegistered: true})

	event := testEvent("ev-1", 2)
	event.RemainingCapacity = 0
	events := newMockEventRepo(event)
	notifications := newMockNotificationRepo()
	svc := newWaitlistServiceForTest(waitlist, records, events, notifications)

	confirmation, err := svc.Confirm(context.Background(), ConfirmWaitlistRequest{UserID: "u3", EventID: "ev-1"})
	require.NoError(t, err)
	require.NotNil(t, confirmation.DisplacedUserID)
	assert.Equal(t, "u1", *confirmation.DisplacedUserID)

	displaced := notifications.ofType(models.NotificationDisplacement)
	require.Len(t, displaced, 1)
	assert.Equal(t, "u1", displaced[0].UserID)

	// The ledger never goes negative on a full-event promotion.
	assert.Equal(t, 0, events.events["ev-1"].RemainingCapacity)
}

func TestWaitlistServiceConfirmRepeatClaimsNoExtraSlot(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	waitlist.add(waitlistAt("u1", "ev-1", 0))

	records := newMockAttendanceRepo()
	events := newMockEventRepo(testEvent("ev-1", 2))
	notifications := newMockNotificationRepo()
	svc := newWaitlistServiceForTest(waitlist, records, events, notifications)

	_, err := svc.Confirm(context.Background(), ConfirmWaitlistRequest{UserID: "u1", EventID: "ev-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, events.events["ev-1"].RemainingCapacity)

	confirmation, err := svc.Confirm(context.Background(), ConfirmWaitlistRequest{UserID: "u1", EventID: "ev-1"})
	require.NoError(t, err)
	assert.True(t, confirmation.Entry.Registered)
	assert.True(t, confirmation.Attendance.HasRegistered)
	assert.Equal(t, 1, events.events["ev-1"].RemainingCapacity, "one promotion holds exactly one slot")
	assert.Nil(t, confirmation.DisplacedUserID)
	assert.Empty(t, notifications.ofType(models.NotificationDisplacement))
}

func TestWaitlistServiceConfirmNotInWaitlist(t *testing.T) {
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(newMockWaitlistRepo(), newMockAttendanceRepo(), events, newMockNotificationRepo())

	_, err := svc.Confirm(context.Background(), ConfirmWaitlistRequest{UserID: "u9", EventID: "ev-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotInWaitlist.Code, appErrors.FromError(err).Code)
}

func TestWaitlistServiceExpire(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	waitlist.add(waitlistAt("u1", "ev-1", 0))
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(waitlist, newMockAttendanceRepo(), events, newMockNotificationRepo())

	require.NoError(t, svc.Expire(context.Background(), "u1", "ev-1"))

	err := svc.Expire(context.Background(), "u1", "ev-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotInWaitlist.Code, appErrors.FromError(err).Code)
}

func TestWaitlistServiceFirst(t *testing.T) {
	waitlist := newMockWaitlistRepo()
	waitlist.add(waitlistAt("u2", "ev-1", time.Minute))
	waitlist.add(waitlistAt("u1", "ev-1", 0))
	events := newMockEventRepo(testEvent("ev-1", 2))
	svc := newWaitlistServiceForTest(waitlist, newMockAttendanceRepo(), events, newMockNotificationRepo())

	entry, err := svc.First(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", entry.UserID)

	_, err = svc.First(context.Background(), "ev-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestIsGenuineDisplacement(t *testing.T) {
	event := testEvent("ev-1", 2)
	candidate := &models.AttendanceRecord{UserID: "u1", EventID: "ev-1"}
	promoted := &models.WaitlistEntry{UserID: "u3", EventID: "ev-1", Registered: true}

	assert.True(t, isGenuineDisplacement(event, candidate, promoted, 2))
	assert.False(t, isGenuineDisplacement(event, nil, promoted, 2), "no candidate")
	assert.False(t, isGenuineDisplacement(event, candidate, promoted, 1), "event not full")
	assert.False(t, isGenuineDisplacement(event, candidate, &models.WaitlistEntry{UserID: "u3", Registered: false}, 2), "promotion did not land")
	assert.False(t, isGenuineDisplacement(event, &models.AttendanceRecord{UserID: "u3"}, promoted, 2), "candidate is the promoted user")
	assert.False(t, isGenuineDisplacement(event, &models.AttendanceRecord{UserID: "u1", HasRegistered: true}, promoted, 2), "candidate already confirmed")
}
