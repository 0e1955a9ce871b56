package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEventRepositoryClaimSlots(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SET remaining_capacity = remaining_capacity - $2")).
		WithArgs("ev-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"remaining_capacity"}).AddRow(3))

	remaining, err := repo.ClaimSlots(context.Background(), "ev-1", 2)
	require.NoError(t, err)
	require.Equal(t, 3, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryClaimSlotsGuardFails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	// No row matched: the guard WHERE remaining_capacity >= $2 rejected the claim.
	mock.ExpectQuery(regexp.QuoteMeta("SET remaining_capacity = remaining_capacity - $2")).
		WithArgs("ev-1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"remaining_capacity"}))

	_, err := repo.ClaimSlots(context.Background(), "ev-1", 5)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryReleaseSlotsClamps(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SET remaining_capacity = LEAST(capacity, remaining_capacity + $2)")).
		WithArgs("ev-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"remaining_capacity"}).AddRow(10))

	remaining, err := repo.ReleaseSlots(context.Background(), "ev-1", 1)
	require.NoError(t, err)
	require.Equal(t, 10, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositorySyncRemainingCapacity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SET remaining_capacity = GREATEST(0, e.capacity - (")).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"remaining_capacity"}).AddRow(4))

	remaining, err := repo.SyncRemainingCapacity(context.Background(), "ev-1")
	require.NoError(t, err)
	require.Equal(t, 4, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}
