package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/events-api/internal/models"
)

// NotificationRepository persists the notification sink entries the
// reconciliation engine emits.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, user_id, event_id, type, message, is_read, created_at`

// Create inserts a notification. The unique (user_id, event_id, type) index
// makes re-emission a no-op; the bool return reports whether a row was
// actually written, which is how callers count "notified exactly once".
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, event_id, type, message, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (user_id, event_id, type) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, n.ID, n.UserID, n.EventID, n.Type, n.Message, n.IsRead, n.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	return affected > 0, nil
}

// ListByUser returns the newest notifications for a user.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT %d`, notificationColumns, limit)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications for user %s: %w", userID, err)
	}
	return notifications, nil
}

// MarkRead flags a notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	query := fmt.Sprintf(`UPDATE notifications SET is_read = TRUE WHERE id = $1 RETURNING %s`, notificationColumns)
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListDisplacedUserIDs returns the users holding a displacement notification
// for an event. The slots summary subtracts them from the occupied count when
// the event was reopened.
func (r *NotificationRepository) ListDisplacedUserIDs(ctx context.Context, eventID string) ([]string, error) {
	const query = `SELECT user_id FROM notifications WHERE event_id = $1 AND type = $2`
	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, query, eventID, models.NotificationDisplacement); err != nil {
		return nil, fmt.Errorf("list displaced users for event %s: %w", eventID, err)
	}
	return userIDs, nil
}
