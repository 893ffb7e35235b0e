//go:build integration

package push_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civreg/internal/notification/models"
	"civreg/internal/notification/push"
	platformredis "civreg/internal/platform/redis"
	"civreg/pkg/domain"
	"civreg/pkg/testutil/containers"
)

func TestRedisBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed tests in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	broker := push.NewRedisBroker(&platformredis.Client{Client: rc.Client},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("publish reaches a confirmed subscriber", func(t *testing.T) {
		userID := domain.NewUserID()
		ch, cancel, err := broker.Subscribe(ctx, userID)
		require.NoError(t, err)
		defer cancel()

		eventID := domain.NewEventID()
		sent := models.New(userID, models.KindEventApproved, "Approved",
			"Registration 1001 has been approved.", &eventID, time.Now().UTC())
		require.NoError(t, broker.Publish(ctx, sent))

		select {
		case received := <-ch:
			assert.Equal(t, sent.ID, received.ID)
			assert.Equal(t, sent.Kind, received.Kind)
			require.NotNil(t, received.EventID)
			assert.Equal(t, eventID, *received.EventID)
		case <-time.After(5 * time.Second):
			t.Fatal("notification never arrived over pub/sub")
		}
	})

	t.Run("channels are per-user", func(t *testing.T) {
		alice := domain.NewUserID()
		bob := domain.NewUserID()

		ch, cancel, err := broker.Subscribe(ctx, alice)
		require.NoError(t, err)
		defer cancel()

		require.NoError(t, broker.Publish(ctx,
			models.New(bob, models.KindEventRejected, "t", "b", nil, time.Now().UTC())))
		require.NoError(t, broker.Publish(ctx,
			models.New(alice, models.KindEventApproved, "t", "b", nil, time.Now().UTC())))

		select {
		case received := <-ch:
			assert.Equal(t, alice, received.UserID)
		case <-time.After(5 * time.Second):
			t.Fatal("notification never arrived over pub/sub")
		}
	})

	t.Run("cancel closes the stream", func(t *testing.T) {
		userID := domain.NewUserID()
		ch, cancel, err := broker.Subscribe(ctx, userID)
		require.NoError(t, err)
		cancel()

		select {
		case _, open := <-ch:
			assert.False(t, open)
		case <-time.After(5 * time.Second):
			t.Fatal("channel never closed after cancel")
		}
	})
}
