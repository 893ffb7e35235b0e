package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civreg/pkg/domain"
	"civreg/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisherEmit(t *testing.T) {
	t.Run("stamps request metadata from context", func(t *testing.T) {
		publisher := NewPublisher(4, discardLogger())

		now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(context.Background(), now)
		ctx = requestcontext.WithRequestID(ctx, "req-1")
		ctx = requestcontext.WithDeviceName(ctx, "Chrome on Linux")
		ctx = requestcontext.WithClientIP(ctx, "10.0.0.9")

		publisher.Emit(ctx, Entry{
			UserID:  domain.NewUserID(),
			Role:    domain.RoleRegistrar,
			Action:  ActionRegister,
			EventID: domain.NewEventID(),
		})

		entry := <-publisher.Inbox()
		assert.Equal(t, now, entry.Timestamp)
		assert.Equal(t, "req-1", entry.RequestID)
		assert.Equal(t, "Chrome on Linux", entry.DeviceName)
		assert.Equal(t, "10.0.0.9", entry.ClientIP)
	})

	t.Run("explicit fields win over context", func(t *testing.T) {
		publisher := NewPublisher(4, discardLogger())
		ctx := requestcontext.WithRequestID(context.Background(), "from-context")

		publisher.Emit(ctx, Entry{Action: ActionApprove, RequestID: "explicit"})
		entry := <-publisher.Inbox()
		assert.Equal(t, "explicit", entry.RequestID)
	})

	t.Run("full inbox drops instead of blocking", func(t *testing.T) {
		publisher := NewPublisher(1, discardLogger())
		ctx := context.Background()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 10; i++ {
				publisher.Emit(ctx, Entry{Action: ActionSubmit})
			}
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Emit blocked on a full inbox")
		}
	})
}

func TestWorker(t *testing.T) {
	t.Run("persists queued entries until cancelled", func(t *testing.T) {
		publisher := NewPublisher(16, discardLogger())
		store := NewInMemoryStore()
		worker := NewWorker(store, nil, publisher.Inbox(), discardLogger())

		ctx, cancel := context.WithCancel(context.Background())
		runErr := make(chan error, 1)
		go func() { runErr <- worker.Run(ctx) }()

		eventID := domain.NewEventID()
		publisher.Emit(ctx, Entry{Action: ActionRegister, EventID: eventID})
		publisher.Emit(ctx, Entry{Action: ActionSubmit, EventID: eventID})

		require.Eventually(t, func() bool {
			entries, err := store.ListByEvent(context.Background(), eventID)
			return err == nil && len(entries) == 2
		}, time.Second, 10*time.Millisecond)

		cancel()
		require.ErrorIs(t, <-runErr, context.Canceled)
	})
}

func TestServiceListByEvent(t *testing.T) {
	store := NewInMemoryStore()
	service := NewService(store)

	eventID := domain.NewEventID()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(context.Background(),
		Entry{Action: ActionSubmit, EventID: eventID, Timestamp: base.Add(time.Minute)}))
	require.NoError(t, store.Append(context.Background(),
		Entry{Action: ActionRegister, EventID: eventID, Timestamp: base}))
	require.NoError(t, store.Append(context.Background(),
		Entry{Action: ActionRegister, EventID: domain.NewEventID(), Timestamp: base}))

	entries, err := service.ListByEvent(context.Background(), eventID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionRegister, entries[0].Action)
	assert.Equal(t, ActionSubmit, entries[1].Action)
}
