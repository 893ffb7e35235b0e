// Package allocator hands out registration IDs. Generated IDs come from an
// atomic counter so two concurrent registrations can never draw the same
// number; explicit IDs are accepted after a conflict pre-check, with the
// store's unique index as the final arbiter.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"civreg/internal/event/store"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
)

// sequenceName keys the shared registration counter.
const sequenceName = "registration"

// maxSkips bounds the generated-ID loop. The counter only collides with
// explicitly chosen numeric IDs, so in practice the first draw wins.
const maxSkips = 1000

type Allocator struct {
	events    store.EventStore
	sequences store.SequenceStore
}

func New(events store.EventStore, sequences store.SequenceStore) *Allocator {
	return &Allocator{events: events, sequences: sequences}
}

// Allocate returns the registration ID for a new record. A non-empty
// explicit value is trimmed and checked for conflicts; otherwise the counter
// is advanced until it yields a number no explicit registration has claimed.
// The returned ID is not reserved — the store's unique index still decides,
// and the caller must treat sentinel.ErrAlreadyUsed from Create as a
// conflict.
func (a *Allocator) Allocate(ctx context.Context, explicit string) (string, error) {
	if id := strings.TrimSpace(explicit); id != "" {
		taken, err := a.taken(ctx, id)
		if err != nil {
			return "", err
		}
		if taken {
			return "", dErrors.NewConflict("registration id is already in use",
				dErrors.ConflictDetail{Field: "registrationId", Value: id})
		}
		return id, nil
	}

	for i := 0; i < maxSkips; i++ {
		n, err := a.sequences.Next(ctx, sequenceName)
		if err != nil {
			return "", fmt.Errorf("advance registration counter: %w", err)
		}
		id := strconv.FormatInt(n, 10)
		taken, err := a.taken(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInternal, "registration counter exhausted its retry budget")
}

// NextFree previews the smallest positive integer not currently assigned as
// a registration ID. It is advisory only: it does not reserve anything and
// does not advance the counter.
func (a *Allocator) NextFree(ctx context.Context) (int64, error) {
	ids, err := a.events.ListRegistrationIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list registration ids: %w", err)
	}
	used := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64); err == nil && n > 0 {
			used[n] = true
		}
	}
	var next int64 = 1
	for used[next] {
		next++
	}
	return next, nil
}

func (a *Allocator) taken(ctx context.Context, id string) (bool, error) {
	_, err := a.events.FindByRegistrationID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("check registration id: %w", err)
}
