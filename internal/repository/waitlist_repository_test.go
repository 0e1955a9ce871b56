package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func waitlistRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "event_id", "date_waitlisted", "registered"})
}

func TestWaitlistRepositoryListQueueExcludesPromoted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE event_id = $1 AND registered = FALSE")).
		WithArgs("ev-1").
		WillReturnRows(waitlistRows().
			AddRow("wl-1", "u1", "ev-1", time.Now(), false).
			AddRow("wl-2", "u2", "ev-1", time.Now().Add(time.Minute), false))

	entries, err := repo.ListQueue(context.Background(), "ev-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "u1", entries[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryMarkRegistered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE waitlist SET registered = TRUE")).
		WithArgs("u1", "ev-1").
		WillReturnRows(waitlistRows().AddRow("wl-1", "u1", "ev-1", time.Now(), true))

	entry, err := repo.MarkRegistered(context.Background(), "u1", "ev-1")
	require.NoError(t, err)
	require.True(t, entry.Registered)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryMarkRegisteredMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE waitlist SET registered = TRUE")).
		WithArgs("u9", "ev-1").
		WillReturnRows(waitlistRows())

	_, err := repo.MarkRegistered(context.Background(), "u9", "ev-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist WHERE user_id = $1 AND event_id = $2")).
		WithArgs("u1", "ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "u1", "ev-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist WHERE user_id = $1 AND event_id = $2")).
		WithArgs("u1", "ev-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(context.Background(), "u1", "ev-1"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryCountPromotedWithAttendance(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE w.event_id = $1 AND w.registered = TRUE")).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountPromotedWithAttendance(context.Background(), "ev-1")
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
