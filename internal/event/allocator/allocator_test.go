package allocator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civreg/internal/event/models"
	"civreg/internal/event/store"
	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
)

func newFixture(t *testing.T) (*Allocator, *store.InMemoryEventStore) {
	t.Helper()
	events := store.NewInMemoryEventStore()
	return New(events, store.NewInMemorySequenceStore()), events
}

func seed(t *testing.T, events *store.InMemoryEventStore, registrationID string) {
	t.Helper()
	event, err := models.NewEvent(models.EventBirth, registrationID,
		models.Data{}, domain.RoleRegistrar, domain.NewUserID(), time.Now())
	require.NoError(t, err)
	require.NoError(t, events.Create(context.Background(), event))
}

func TestAllocate(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit id is trimmed and accepted", func(t *testing.T) {
		alloc, _ := newFixture(t)
		id, err := alloc.Allocate(ctx, "  BR-0042  ")
		require.NoError(t, err)
		assert.Equal(t, "BR-0042", id)
	})

	t.Run("explicit id in use is a conflict", func(t *testing.T) {
		alloc, events := newFixture(t)
		seed(t, events, "BR-0042")

		_, err := alloc.Allocate(ctx, "br-0042")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		detail := dErrors.Details(err)
		require.NotNil(t, detail)
		require.NotNil(t, detail.Conflict)
		assert.Equal(t, "registrationId", detail.Conflict.Field)
	})

	t.Run("generated ids count up", func(t *testing.T) {
		alloc, _ := newFixture(t)

		first, err := alloc.Allocate(ctx, "")
		require.NoError(t, err)
		second, err := alloc.Allocate(ctx, "")
		require.NoError(t, err)

		assert.Equal(t, "1", first)
		assert.Equal(t, "2", second)
	})

	t.Run("generated ids skip explicitly claimed numbers", func(t *testing.T) {
		alloc, events := newFixture(t)
		seed(t, events, "1")
		seed(t, events, "2")

		id, err := alloc.Allocate(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "3", id)
	})
}

func TestNextFree(t *testing.T) {
	ctx := context.Background()

	t.Run("empty registry starts at one", func(t *testing.T) {
		alloc, _ := newFixture(t)
		n, err := alloc.NextFree(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("fills the first gap", func(t *testing.T) {
		alloc, events := newFixture(t)
		seed(t, events, "1")
		seed(t, events, "2")
		seed(t, events, "4")

		n, err := alloc.NextFree(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("non-numeric ids do not participate", func(t *testing.T) {
		alloc, events := newFixture(t)
		seed(t, events, "BR-0001")
		seed(t, events, "1")

		n, err := alloc.NextFree(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("does not advance the counter", func(t *testing.T) {
		alloc, _ := newFixture(t)

		_, err := alloc.NextFree(ctx)
		require.NoError(t, err)

		id, err := alloc.Allocate(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "1", id)
	})
}
