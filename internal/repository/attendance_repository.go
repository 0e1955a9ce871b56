package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/events-api/internal/models"
)

// AttendanceRepository handles persistence of (user, event) attendance
// records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, user_id, event_id, has_registered, has_attended, date_registered, seq`

// FindByUserAndEvent returns the record for a (user, event) pair.
func (r *AttendanceRepository) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE user_id = $1 AND event_id = $2`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, userID, eventID); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByID returns the record by its ID.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE id = $1`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create persists a new attendance record, filling in the assigned sequence.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.DateRegistered.IsZero() {
		record.DateRegistered = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, user_id, event_id, has_registered, has_attended, date_registered)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING seq`
	if err := r.db.GetContext(ctx, &record.Seq, query,
		record.ID, record.UserID, record.EventID, record.HasRegistered, record.HasAttended, record.DateRegistered); err != nil {
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// UpsertConfirmed inserts a confirmed record or confirms an existing one.
// Used by waitlist promotion, which must leave has_registered=true either way.
func (r *AttendanceRepository) UpsertConfirmed(ctx context.Context, userID, eventID string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`INSERT INTO attendance (id, user_id, event_id, has_registered, has_attended, date_registered)
        VALUES ($1, $2, $3, TRUE, FALSE, $4)
        ON CONFLICT (user_id, event_id) DO UPDATE SET has_registered = TRUE
        RETURNING %s`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, uuid.NewString(), userID, eventID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("upsert confirmed attendance: %w", err)
	}
	return &record, nil
}

// SetRegistered flips the has_registered flag on a record by ID.
func (r *AttendanceRepository) SetRegistered(ctx context.Context, id string, registered bool) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`UPDATE attendance SET has_registered = $2 WHERE id = $1 RETURNING %s`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id, registered); err != nil {
		return nil, err
	}
	return &record, nil
}

// SetRegisteredByUserAndEvent flips has_registered for a (user, event) pair.
func (r *AttendanceRepository) SetRegisteredByUserAndEvent(ctx context.Context, userID, eventID string, registered bool) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`UPDATE attendance SET has_registered = $3 WHERE user_id = $1 AND event_id = $2 RETURNING %s`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, userID, eventID, registered); err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkAttended records the check-in for a (user, event) pair.
func (r *AttendanceRepository) MarkAttended(ctx context.Context, userID, eventID string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`UPDATE attendance SET has_attended = TRUE WHERE user_id = $1 AND event_id = $2 RETURNING %s`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, userID, eventID); err != nil {
		return nil, err
	}
	return &record, nil
}

// EarliestUnconfirmed returns the oldest record with has_registered=false for
// an event, by insertion sequence. This is the displacement candidate.
func (r *AttendanceRepository) EarliestUnconfirmed(ctx context.Context, eventID string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance
        WHERE event_id = $1 AND has_registered = FALSE
        ORDER BY seq LIMIT 1`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, eventID); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByEvent returns all records for an event in insertion order.
func (r *AttendanceRepository) ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE event_id = $1 ORDER BY seq`, attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, eventID); err != nil {
		return nil, fmt.Errorf("list attendance for event %s: %w", eventID, err)
	}
	return records, nil
}

// Counts aggregates occupancy numbers for an event.
func (r *AttendanceRepository) Counts(ctx context.Context, eventID string) (*models.AttendanceCounts, error) {
	const query = `SELECT
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE has_registered) AS registered,
        COUNT(*) FILTER (WHERE has_attended) AS attended,
        COUNT(*) FILTER (WHERE NOT has_registered) AS unconfirmed
        FROM attendance WHERE event_id = $1`
	var counts models.AttendanceCounts
	if err := r.db.GetContext(ctx, &counts, query, eventID); err != nil {
		return nil, fmt.Errorf("count attendance for event %s: %w", eventID, err)
	}
	return &counts, nil
}

// CountLiveRegistered counts confirmed registrants who have not yet attended.
// This is the live-occupancy figure the waitlist position uses.
func (r *AttendanceRepository) CountLiveRegistered(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance
        WHERE event_id = $1 AND has_registered = TRUE AND has_attended = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, fmt.Errorf("count live registered for event %s: %w", eventID, err)
	}
	return count, nil
}

// Delete removes a record by ID, returning it so callers can restore a slot
// when a confirmed registrant is removed.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`DELETE FROM attendance WHERE id = $1 RETURNING %s`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}
