package store

import (
	"context"
	"sort"
	"sync"

	"civreg/internal/notification/models"
	"civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
)

type InMemoryNotificationStore struct {
	mu     sync.RWMutex
	byUser map[domain.UserID][]*models.Notification
}

func NewInMemoryNotificationStore() *InMemoryNotificationStore {
	return &InMemoryNotificationStore{byUser: make(map[domain.UserID][]*models.Notification)}
}

func (s *InMemoryNotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *n
	s.byUser[n.UserID] = append(s.byUser[n.UserID], &clone)
	return nil
}

func (s *InMemoryNotificationStore) ListByUser(_ context.Context, userID domain.UserID, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.byUser[userID]
	out := make([]*models.Notification, 0, len(stored))
	for _, n := range stored {
		clone := *n
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryNotificationStore) CountUnread(_ context.Context, userID domain.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.byUser[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryNotificationStore) MarkRead(_ context.Context, userID domain.UserID, id domain.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.byUser[userID] {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryNotificationStore) MarkAllRead(_ context.Context, userID domain.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, n := range s.byUser[userID] {
		if !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed, nil
}
