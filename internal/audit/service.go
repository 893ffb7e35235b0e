package audit

import (
	"context"

	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
)

// Service is the read side of the audit trail.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListByEvent returns the recorded trail for one event, oldest first.
func (s *Service) ListByEvent(ctx context.Context, eventID domain.EventID) ([]Entry, error) {
	entries, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit trail")
	}
	return entries, nil
}
