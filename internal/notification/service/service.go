// Package service implements notification delivery with a persist-first
// contract: every notification is written to the store before any push is
// attempted, and push failures degrade to log lines and counters — they
// never fail the operation that produced the notification.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"civreg/internal/notification/models"
	"civreg/internal/notification/push"
	"civreg/internal/notification/store"
	"civreg/internal/platform/metrics"
	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/requestcontext"
)

// Directory resolves the manager audience for review notifications.
type Directory interface {
	Managers(ctx context.Context) ([]domain.UserID, error)
}

// StaticDirectory serves a fixed manager list, typically from configuration.
type StaticDirectory struct {
	managers []domain.UserID
}

func NewStaticDirectory(managers []domain.UserID) *StaticDirectory {
	return &StaticDirectory{managers: managers}
}

func (d *StaticDirectory) Managers(context.Context) ([]domain.UserID, error) {
	return d.managers, nil
}

type Service struct {
	store     store.NotificationStore
	broker    push.Broker
	directory Directory
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(s store.NotificationStore, broker push.Broker, directory Directory, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: s, broker: broker, directory: directory, metrics: m, logger: logger}
}

// Notify stores a notification for the user and then attempts a live push.
// The returned error reflects storage only.
func (s *Service) Notify(ctx context.Context, userID domain.UserID, kind models.Kind, title, body string, eventID *domain.EventID) error {
	n := models.New(userID, kind, title, body, eventID, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	s.metrics.NotificationsStored.Inc()

	if err := s.broker.Publish(ctx, n); err != nil {
		s.metrics.NotificationsDropped.Inc()
		s.logger.Warn("push delivery failed, stored copy stands",
			"notification_id", n.ID.String(),
			"user_id", userID.String(),
			"kind", string(kind),
			"error", err)
		return nil
	}
	s.metrics.NotificationsPushed.Inc()
	return nil
}

// NotifyManagers fans one notification out to every manager. Each recipient
// gets an independent stored copy; a failure for one recipient does not stop
// the others.
func (s *Service) NotifyManagers(ctx context.Context, kind models.Kind, title, body string, eventID *domain.EventID) error {
	managers, err := s.directory.Managers(ctx)
	if err != nil {
		return fmt.Errorf("resolve managers: %w", err)
	}
	var firstErr error
	for _, managerID := range managers {
		if err := s.Notify(ctx, managerID, kind, title, body, eventID); err != nil {
			s.logger.Error("manager notification failed",
				"user_id", managerID.String(), "kind", string(kind), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Service) List(ctx context.Context, userID domain.UserID, limit int) ([]*models.Notification, error) {
	notifications, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return notifications, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID domain.UserID) (int, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count notifications")
	}
	return count, nil
}

func (s *Service) MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error {
	err := s.store.MarkRead(ctx, userID, id)
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
}

func (s *Service) MarkAllRead(ctx context.Context, userID domain.UserID) (int, error) {
	changed, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	return changed, nil
}

// Stream subscribes the user to live pushes. The caller owns the cancel
// function.
func (s *Service) Stream(ctx context.Context, userID domain.UserID) (<-chan *models.Notification, func(), error) {
	ch, cancel, err := s.broker.Subscribe(ctx, userID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "notification stream unavailable")
	}
	return ch, cancel, nil
}
