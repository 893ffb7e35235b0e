package push

import (
	"context"
	"sync"

	"civreg/internal/notification/models"
	"civreg/pkg/domain"
)

// subscriberBuffer sizes each subscriber channel. A full buffer drops the
// message for that subscriber instead of blocking the publisher.
const subscriberBuffer = 16

// InMemoryBroker is a process-local hub for single-instance deployments and
// tests.
type InMemoryBroker struct {
	mu     sync.Mutex
	closed bool
	subs   map[domain.UserID]map[int]chan *models.Notification
	nextID int
}

func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{subs: make(map[domain.UserID]map[int]chan *models.Notification)}
}

func (b *InMemoryBroker) Publish(_ context.Context, n *models.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for _, ch := range b.subs[n.UserID] {
		select {
		case ch <- n:
		default:
			// Slow consumer: drop rather than block. The stored copy survives.
		}
	}
	return nil
}

func (b *InMemoryBroker) Subscribe(_ context.Context, userID domain.UserID) (<-chan *models.Notification, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *models.Notification, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}, nil
	}
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]chan *models.Notification)
	}
	id := b.nextID
	b.nextID++
	b.subs[userID][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if chans, ok := b.subs[userID]; ok {
			if _, live := chans[id]; live {
				delete(chans, id)
				close(ch)
			}
			if len(chans) == 0 {
				delete(b.subs, userID)
			}
		}
	}
	return ch, cancel, nil
}

func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = make(map[domain.UserID]map[int]chan *models.Notification)
	return nil
}
