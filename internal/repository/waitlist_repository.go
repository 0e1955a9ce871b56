package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/events-api/internal/models"
)

// WaitlistRepository handles persistence of the per-event FIFO waitlist.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs the repository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

const waitlistColumns = `id, user_id, event_id, date_waitlisted, registered`

// FindByUserAndEvent returns the entry for a (user, event) pair.
func (r *WaitlistRepository) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.WaitlistEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waitlist WHERE user_id = $1 AND event_id = $2`, waitlistColumns)
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, userID, eventID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts a new waitlist entry.
func (r *WaitlistRepository) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.DateWaitlisted.IsZero() {
		entry.DateWaitlisted = time.Now().UTC()
	}
	const query = `INSERT INTO waitlist (id, user_id, event_id, date_waitlisted, registered)
        VALUES (:id, :user_id, :event_id, :date_waitlisted, :registered)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	return nil
}

// ListQueue returns the pending queue for an event, FIFO by join time.
// Promoted entries (registered=true) are excluded by construction.
func (r *WaitlistRepository) ListQueue(ctx context.Context, eventID string) ([]models.WaitlistEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waitlist
        WHERE event_id = $1 AND registered = FALSE
        ORDER BY date_waitlisted`, waitlistColumns)
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, eventID); err != nil {
		return nil, fmt.Errorf("list waitlist queue for event %s: %w", eventID, err)
	}
	return entries, nil
}

// ListByEvent returns every entry for an event, promoted ones included, FIFO
// by join time.
func (r *WaitlistRepository) ListByEvent(ctx context.Context, eventID string) ([]models.WaitlistEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waitlist WHERE event_id = $1 ORDER BY date_waitlisted`, waitlistColumns)
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, eventID); err != nil {
		return nil, fmt.Errorf("list waitlist for event %s: %w", eventID, err)
	}
	return entries, nil
}

// First returns the earliest entry for an event.
func (r *WaitlistRepository) First(ctx context.Context, eventID string) (*models.WaitlistEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waitlist WHERE event_id = $1 ORDER BY date_waitlisted LIMIT 1`, waitlistColumns)
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, eventID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkRegistered flags a (user, event) entry as promoted. The row is kept as
// an audit trail. sql.ErrNoRows means the user is not in the waitlist.
func (r *WaitlistRepository) MarkRegistered(ctx context.Context, userID, eventID string) (*models.WaitlistEntry, error) {
	query := fmt.Sprintf(`UPDATE waitlist SET registered = TRUE
        WHERE user_id = $1 AND event_id = $2
        RETURNING %s`, waitlistColumns)
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, userID, eventID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Delete removes a (user, event) entry. Used for expiry and declines.
func (r *WaitlistRepository) Delete(ctx context.Context, userID, eventID string) error {
	const query = `DELETE FROM waitlist WHERE user_id = $1 AND event_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, eventID)
	if err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountPromotedWithAttendance counts promoted entries whose user has since
// obtained an attendance record. Used by the post-close absentee accounting.
func (r *WaitlistRepository) CountPromotedWithAttendance(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM waitlist w
        WHERE w.event_id = $1 AND w.registered = TRUE
        AND EXISTS (
                SELECT 1 FROM attendance a
                WHERE a.user_id = w.user_id AND a.event_id = w.event_id
        )`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, fmt.Errorf("count promoted waitlisters for event %s: %w", eventID, err)
	}
	return count, nil
}
