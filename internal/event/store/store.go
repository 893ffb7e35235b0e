package store

import (
	"context"

	"civreg/internal/event/models"
	"civreg/pkg/domain"
)

// Stores are interface-driven to keep the domain logic testable and to allow
// swapping in-memory and Postgres persistence without rewiring business code.

// EventStore persists event records. Implementations enforce the one hard
// write guarantee of the system: registration IDs are unique
// case-insensitively across the collection.
type EventStore interface {
	// Create persists a new event. Returns sentinel.ErrAlreadyUsed when the
	// registration ID is already taken (case-insensitive).
	Create(ctx context.Context, event *models.Event) error

	// Update replaces a stored event. Returns sentinel.ErrNotFound for an
	// unknown ID.
	Update(ctx context.Context, event *models.Event) error

	FindByID(ctx context.Context, id domain.EventID) (*models.Event, error)

	// FindByRegistrationID matches case-insensitively.
	FindByRegistrationID(ctx context.Context, registrationID string) (*models.Event, error)

	ListByOwner(ctx context.Context, ownerID domain.UserID) ([]*models.Event, error)
	ListByStatus(ctx context.Context, status models.EventStatus) ([]*models.Event, error)

	// ListByTypeAndStatuses feeds the integrity checker's duplicate search.
	ListByTypeAndStatuses(ctx context.Context, t models.EventType, statuses []models.EventStatus) ([]*models.Event, error)

	// ListRegistrationIDs returns every assigned registration ID, for the
	// advisory next-free-integer preview.
	ListRegistrationIDs(ctx context.Context) ([]string, error)

	Delete(ctx context.Context, id domain.EventID) error

	// Execute runs validate then mutate against the stored event while
	// holding the store's lock (mutex or row lock), so a transition's check
	// and write cannot interleave with another writer. Returns the mutated
	// event.
	Execute(ctx context.Context, id domain.EventID, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error)
}

// SequenceStore owns the registration-number counter. Next is the only
// operation: a single atomic increment-and-read. Callers never see
// read-then-write access.
type SequenceStore interface {
	Next(ctx context.Context, name string) (int64, error)
}
