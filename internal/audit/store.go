package audit

import (
	"context"
	"sort"
	"sync"

	"civreg/pkg/domain"
)

// Store is an append-only sink for audit entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEvent(ctx context.Context, eventID domain.EventID) ([]Entry, error)
}

// InMemoryStore keeps the trail in memory for development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListByEvent(_ context.Context, eventID domain.EventID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, entry := range s.entries {
		if entry.EventID == eventID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
