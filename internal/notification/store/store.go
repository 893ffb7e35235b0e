package store

import (
	"context"

	"civreg/internal/notification/models"
	"civreg/pkg/domain"
)

// NotificationStore persists per-user notifications. Listing is newest-first.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID domain.UserID, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID domain.UserID) (int, error)

	// MarkRead flips one notification owned by the user. Returns
	// sentinel.ErrNotFound when the notification does not exist or belongs to
	// someone else.
	MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error

	// MarkAllRead flips every unread notification of the user and reports how
	// many changed.
	MarkAllRead(ctx context.Context, userID domain.UserID) (int, error)
}
