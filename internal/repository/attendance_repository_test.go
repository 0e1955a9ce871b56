package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/events-api/internal/models"
)

func attendanceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "event_id", "has_registered", "has_attended", "date_registered", "seq"})
}

func TestAttendanceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance")).
		WithArgs(sqlmock.AnyArg(), "u1", "ev-1", false, false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(7)))

	record := &models.AttendanceRecord{UserID: "u1", EventID: "ev-1"}
	require.NoError(t, repo.Create(context.Background(), record))
	require.NotEmpty(t, record.ID)
	require.Equal(t, int64(7), record.Seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertConfirmed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, event_id) DO UPDATE SET has_registered = TRUE")).
		WithArgs(sqlmock.AnyArg(), "u1", "ev-1", sqlmock.AnyArg()).
		WillReturnRows(attendanceRows().AddRow("att-1", "u1", "ev-1", true, false, time.Now(), int64(3)))

	record, err := repo.UpsertConfirmed(context.Background(), "u1", "ev-1")
	require.NoError(t, err)
	require.True(t, record.HasRegistered)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryEarliestUnconfirmed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE event_id = $1 AND has_registered = FALSE")).
		WithArgs("ev-1").
		WillReturnRows(attendanceRows().AddRow("att-1", "u1", "ev-1", false, false, time.Now(), int64(1)))

	record, err := repo.EarliestUnconfirmed(context.Background(), "ev-1")
	require.NoError(t, err)
	require.Equal(t, "u1", record.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE has_registered) AS registered")).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "registered", "attended", "unconfirmed"}).AddRow(5, 3, 1, 2))

	counts, err := repo.Counts(context.Background(), "ev-1")
	require.NoError(t, err)
	require.Equal(t, 5, counts.Total)
	require.Equal(t, 3, counts.Registered)
	require.Equal(t, 1, counts.Attended)
	require.Equal(t, 2, counts.Unconfirmed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteReturnsRecord(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM attendance WHERE id = $1 RETURNING")).
		WithArgs("att-1").
		WillReturnRows(attendanceRows().AddRow("att-1", "u1", "ev-1", true, false, time.Now(), int64(2)))

	record, err := repo.Delete(context.Background(), "att-1")
	require.NoError(t, err)
	require.True(t, record.HasRegistered)
	require.NoError(t, mock.ExpectationsWereMet())
}
