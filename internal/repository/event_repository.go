package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/events-api/internal/models"
)

// EventRepository reads the event directory and owns the capacity ledger.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, name, description, organization, second_organization, department, location,
        date_start, date_end, capacity, remaining_capacity, is_archived, is_reopened, created_at, updated_at`

// FindByID returns an event by its ID.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListActive returns all non-archived events ordered by start date.
func (r *EventRepository) ListActive(ctx context.Context) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE is_archived = FALSE ORDER BY date_start`, eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list active events: %w", err)
	}
	return events, nil
}

// ClaimSlots deducts n slots in a single guarded update so concurrent claims
// can never drive the ledger negative. sql.ErrNoRows means the guard failed:
// not enough remaining capacity (or no such event).
func (r *EventRepository) ClaimSlots(ctx context.Context, eventID string, n int) (int, error) {
	const query = `UPDATE events
        SET remaining_capacity = remaining_capacity - $2, updated_at = NOW()
        WHERE id = $1 AND remaining_capacity >= $2
        RETURNING remaining_capacity`
	var remaining int
	if err := r.db.GetContext(ctx, &remaining, query, eventID, n); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("claim %d slots for event %s: %w", n, eventID, err)
	}
	return remaining, nil
}

// ReleaseSlots restores n slots, clamped at the original capacity.
func (r *EventRepository) ReleaseSlots(ctx context.Context, eventID string, n int) (int, error) {
	const query = `UPDATE events
        SET remaining_capacity = LEAST(capacity, remaining_capacity + $2), updated_at = NOW()
        WHERE id = $1
        RETURNING remaining_capacity`
	var remaining int
	if err := r.db.GetContext(ctx, &remaining, query, eventID, n); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("release %d slots for event %s: %w", n, eventID, err)
	}
	return remaining, nil
}

// SyncRemainingCapacity recomputes the ledger from confirmed attendance
// counts. The attendance registry is the source of truth; the ledger column
// is a cache that approval races could have skewed.
func (r *EventRepository) SyncRemainingCapacity(ctx context.Context, eventID string) (int, error) {
	const query = `UPDATE events e
        SET remaining_capacity = GREATEST(0, e.capacity - (
                SELECT COUNT(*) FROM attendance a
                WHERE a.event_id = e.id AND a.has_registered = TRUE
        )), updated_at = NOW()
        WHERE e.id = $1
        RETURNING remaining_capacity`
	var remaining int
	if err := r.db.GetContext(ctx, &remaining, query, eventID); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("sync remaining capacity for event %s: %w", eventID, err)
	}
	return remaining, nil
}
