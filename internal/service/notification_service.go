package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/campuspulse/events-api/internal/models"
	appErrors "github.com/campuspulse/events-api/pkg/errors"
)

type notificationStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) (*models.Notification, error)
}

// NotificationService exposes the per-user notification feed. Creation goes
// through the attendance, waitlist, and reconciliation flows.
type NotificationService struct {
	store  notificationStore
	logger *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(store notificationStore, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{store: store, logger: logger}
}

// ListByUser returns the newest notifications for a user.
func (s *NotificationService) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	notifications, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flags a single notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.store.MarkRead(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return notification, nil
}
