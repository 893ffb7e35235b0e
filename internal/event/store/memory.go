package store

import (
	"context"
	"strings"
	"sync"

	"civreg/internal/event/models"
	"civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
)

// InMemoryEventStore keeps development and tests free of external
// dependencies. It intentionally favors clarity over performance.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[domain.EventID]*models.Event
	// regIDs indexes lowercase registration IDs for case-insensitive
	// uniqueness.
	regIDs map[string]domain.EventID
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		events: make(map[domain.EventID]*models.Event),
		regIDs: make(map[string]domain.EventID),
	}
}

func (s *InMemoryEventStore) Create(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(event.RegistrationID)
	if _, taken := s.regIDs[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.events[event.ID] = event.Clone()
	s.regIDs[key] = event.ID
	return nil
}

func (s *InMemoryEventStore) Update(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.events[event.ID] = event.Clone()
	return nil
}

func (s *InMemoryEventStore) FindByID(_ context.Context, id domain.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if event, ok := s.events[id]; ok {
		return event.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryEventStore) FindByRegistrationID(_ context.Context, registrationID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.regIDs[strings.ToLower(registrationID)]; ok {
		return s.events[id].Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryEventStore) ListByOwner(_ context.Context, ownerID domain.UserID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, event := range s.events {
		if event.OwnerID == ownerID {
			out = append(out, event.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryEventStore) ListByStatus(_ context.Context, status models.EventStatus) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, event := range s.events {
		if event.Status == status {
			out = append(out, event.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryEventStore) ListByTypeAndStatuses(_ context.Context, t models.EventType, statuses []models.EventStatus) ([]*models.Event, error) {
	wanted := make(map[models.EventStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, event := range s.events {
		if event.Type == t && wanted[event.Status] {
			out = append(out, event.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryEventStore) ListRegistrationIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.RegistrationID)
	}
	return out, nil
}

func (s *InMemoryEventStore) Delete(_ context.Context, id domain.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.regIDs, strings.ToLower(event.RegistrationID))
	delete(s.events, id)
	return nil
}

func (s *InMemoryEventStore) Execute(_ context.Context, id domain.EventID, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := event.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.events[id] = working
	return working.Clone(), nil
}

// InMemorySequenceStore backs the allocator in development and tests. The
// mutex makes Next a single atomic increment-and-read.
type InMemorySequenceStore struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewInMemorySequenceStore() *InMemorySequenceStore {
	return &InMemorySequenceStore{values: make(map[string]int64)}
}

func (s *InMemorySequenceStore) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name]++
	return s.values[name], nil
}
