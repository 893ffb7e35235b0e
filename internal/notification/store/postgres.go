package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"civreg/internal/notification/models"
	"civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
)

const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	event_id UUID,
	read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_user_created
	ON notifications (user_id, created_at DESC);
`

type PostgresNotificationStore struct {
	db *sql.DB
}

func NewPostgresNotificationStore(db *sql.DB) *PostgresNotificationStore {
	return &PostgresNotificationStore{db: db}
}

func (s *PostgresNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	var eventID any
	if n.EventID != nil {
		eventID = n.EventID.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, body, event_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID.String(), n.UserID.String(), string(n.Kind), n.Title, n.Body, eventID, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresNotificationStore) ListByUser(ctx context.Context, userID domain.UserID, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, title, body, event_id, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (s *PostgresNotificationStore) CountUnread(ctx context.Context, userID domain.UserID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`,
		userID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresNotificationStore) MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresNotificationStore) MarkAllRead(ctx context.Context, userID domain.UserID) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`,
		userID.String())
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n                models.Notification
		rawID, rawUserID string
		kind             string
		rawEventID       sql.NullString
		createdAt        time.Time
	)
	if err := row.Scan(&rawID, &rawUserID, &kind, &n.Title, &n.Body, &rawEventID, &n.Read, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	id, err := domain.ParseNotificationID(rawID)
	if err != nil {
		return nil, err
	}
	userID, err := domain.ParseUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	n.ID = id
	n.UserID = userID
	n.Kind = models.Kind(kind)
	n.CreatedAt = createdAt
	if rawEventID.Valid {
		eventID, err := domain.ParseEventID(rawEventID.String)
		if err != nil {
			return nil, err
		}
		n.EventID = &eventID
	}
	return &n, nil
}
