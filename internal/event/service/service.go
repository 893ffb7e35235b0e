// Package service orchestrates the registration pipeline and the review
// workflow. It owns operation ordering and error translation; the rules
// themselves live in the canonical, validate, integrity, and models
// packages.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"civreg/internal/audit"
	"civreg/internal/certificate"
	"civreg/internal/event/allocator"
	"civreg/internal/event/canonical"
	"civreg/internal/event/integrity"
	"civreg/internal/event/models"
	"civreg/internal/event/store"
	"civreg/internal/event/validate"
	notifmodels "civreg/internal/notification/models"
	"civreg/internal/platform/metrics"
	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/requestcontext"
)

var tracer = otel.Tracer("civreg/internal/event/service")

// createAttempts bounds the allocate-create retry loop for generated
// registration IDs. The store's unique index can still reject a generated ID
// when an explicit registration races the counter.
const createAttempts = 3

// Notifier is the slice of the notification service the workflow needs.
// Implementations must be best-effort on the push leg; a returned error
// means the stored copy could not be written.
type Notifier interface {
	Notify(ctx context.Context, userID domain.UserID, kind notifmodels.Kind, title, body string, eventID *domain.EventID) error
	NotifyManagers(ctx context.Context, kind notifmodels.Kind, title, body string, eventID *domain.EventID) error
}

type Service struct {
	events    store.EventStore
	alloc     *allocator.Allocator
	integrity *integrity.Checker
	notifier  Notifier
	audit     *audit.Publisher
	renderer  certificate.Renderer
	mailer    certificate.Mailer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(
	events store.EventStore,
	alloc *allocator.Allocator,
	checker *integrity.Checker,
	notifier Notifier,
	auditPublisher *audit.Publisher,
	renderer certificate.Renderer,
	mailer certificate.Mailer,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		events:    events,
		alloc:     alloc,
		integrity: checker,
		notifier:  notifier,
		audit:     auditPublisher,
		renderer:  renderer,
		mailer:    mailer,
		metrics:   m,
		logger:    logger,
	}
}

// RegisterInput is a new registration as submitted. RegistrationID is
// optional; when empty an ID is drawn from the counter.
type RegisterInput struct {
	Type           models.EventType
	RegistrationID string
	Data           models.Data
}

// Register runs the full intake pipeline: canonicalize, validate
// completeness on the pre-fallback data, cross-check identity numbers,
// derive fallbacks, allocate a registration ID, and persist the record as a
// draft owned by the caller.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "event.Register",
		trace.WithAttributes(attribute.String("event.type", string(input.Type))))
	defer span.End()

	owner := requestcontext.UserID(ctx)
	role := requestcontext.Role(ctx)
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	data := canonical.Canonicalize(input.Type, input.Data)

	if result := validate.Validate(input.Type, data); !result.OK {
		s.metrics.ValidationFailures.WithLabelValues(string(input.Type)).Inc()
		return nil, result.Err()
	}
	if err := s.checkIntegrity(ctx, input.Type, data, domain.EventID{}); err != nil {
		return nil, err
	}

	data = canonical.ApplyFallbacks(input.Type, data)

	event, err := s.create(ctx, input, data, role, owner)
	if err != nil {
		return nil, err
	}

	s.metrics.EventsRegistered.WithLabelValues(string(input.Type)).Inc()
	s.audit.Emit(ctx, audit.Entry{
		UserID:         owner,
		Role:           role,
		Action:         audit.ActionRegister,
		EventID:        event.ID,
		RegistrationID: event.RegistrationID,
	})
	s.logger.InfoContext(ctx, "event registered",
		"event_id", event.ID.String(),
		"registration_id", event.RegistrationID,
		"type", string(event.Type),
	)
	return event, nil
}

// create allocates an ID and persists the draft. The unique index is the
// final arbiter: a conflict on an explicit ID is the caller's to resolve,
// a conflict on a generated ID just means the counter lost a race and we
// draw again.
func (s *Service) create(ctx context.Context, input RegisterInput, data models.Data, role domain.Role, owner domain.UserID) (*models.Event, error) {
	explicit := strings.TrimSpace(input.RegistrationID) != ""
	for attempt := 0; attempt < createAttempts; attempt++ {
		registrationID, err := s.alloc.Allocate(ctx, input.RegistrationID)
		if err != nil {
			return nil, err
		}
		event, err := models.NewEvent(input.Type, registrationID, data, role, owner, requestcontext.Now(ctx))
		if err != nil {
			return nil, err
		}
		err = s.events.Create(ctx, event)
		if err == nil {
			s.metrics.RegistrationIDsIssued.Inc()
			return event, nil
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store event")
		}
		if explicit {
			return nil, dErrors.NewConflict("registration id is already in use",
				dErrors.ConflictDetail{Field: "registrationId", Value: registrationID})
		}
	}
	return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a free registration id")
}

// checkIntegrity runs the duplicate and sex-consistency checks, attributing
// rejections to their metrics.
func (s *Service) checkIntegrity(ctx context.Context, t models.EventType, data models.Data, excludeID domain.EventID) error {
	if err := s.integrity.CheckDuplicates(ctx, t, data, excludeID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.DuplicatesRejected.WithLabelValues(string(t)).Inc()
		}
		return err
	}
	if err := s.integrity.CheckSexConsistency(ctx, t, data, excludeID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.SexConflictsRejected.Inc()
		}
		return err
	}
	return nil
}

// Get returns one event. Owners and managers see any status; other callers
// only approved records.
func (s *Service) Get(ctx context.Context, eventID domain.EventID) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	return s.authorizeRead(ctx, event)
}

// GetByRegistrationID looks a record up by its registration ID,
// case-insensitively. Same visibility rules as Get.
func (s *Service) GetByRegistrationID(ctx context.Context, registrationID string) (*models.Event, error) {
	if strings.TrimSpace(registrationID) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration id is required")
	}
	event, err := s.events.FindByRegistrationID(ctx, registrationID)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	return s.authorizeRead(ctx, event)
}

func (s *Service) authorizeRead(ctx context.Context, event *models.Event) (*models.Event, error) {
	userID := requestcontext.UserID(ctx)
	role := requestcontext.Role(ctx)
	if event.OwnerID == userID || role.IsManager() || event.Status == models.StatusApproved {
		return event, nil
	}
	return nil, dErrors.New(dErrors.CodeForbidden, "record is not visible to this user")
}

// ListMine returns the caller's own records.
func (s *Service) ListMine(ctx context.Context) ([]*models.Event, error) {
	events, err := s.events.ListByOwner(ctx, requestcontext.UserID(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

// ListByStatus serves the manager review queues.
func (s *Service) ListByStatus(ctx context.Context, status models.EventStatus) ([]*models.Event, error) {
	events, err := s.events.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

// Update replaces a draft or rejected record's data after re-running the
// intake pipeline. The registration ID never changes.
func (s *Service) Update(ctx context.Context, eventID domain.EventID, data models.Data) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "event.Update")
	defer span.End()

	userID := requestcontext.UserID(ctx)

	current, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	if err := current.CanEdit(userID); err != nil {
		return nil, err
	}

	canonicalized := canonical.Canonicalize(current.Type, data)
	if result := validate.Validate(current.Type, canonicalized); !result.OK {
		s.metrics.ValidationFailures.WithLabelValues(string(current.Type)).Inc()
		return nil, result.Err()
	}
	if err := s.checkIntegrity(ctx, current.Type, canonicalized, eventID); err != nil {
		return nil, err
	}
	canonicalized = canonical.ApplyFallbacks(current.Type, canonicalized)

	now := requestcontext.Now(ctx)
	event, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error { return e.CanEdit(userID) },
		func(e *models.Event) {
			e.Data = canonicalized
			e.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	s.audit.Emit(ctx, audit.Entry{
		UserID:         userID,
		Role:           requestcontext.Role(ctx),
		Action:         audit.ActionUpdate,
		EventID:        event.ID,
		RegistrationID: event.RegistrationID,
	})
	return event, nil
}

// Submit moves a draft or rejected record into the pending review queue and
// notifies the managers. Completeness and integrity are re-checked at the
// moment of submission so a stale draft cannot slip past rules that changed
// under it.
func (s *Service) Submit(ctx context.Context, eventID domain.EventID) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "event.Submit")
	defer span.End()

	userID := requestcontext.UserID(ctx)

	current, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	if current.OwnerID != userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the record owner can submit it")
	}
	if err := current.CanSubmit(); err != nil {
		return nil, err
	}
	if result := validate.Validate(current.Type, current.Data); !result.OK {
		s.metrics.ValidationFailures.WithLabelValues(string(current.Type)).Inc()
		return nil, result.Err()
	}
	if err := s.checkIntegrity(ctx, current.Type, current.Data, eventID); err != nil {
		return nil, err
	}

	resubmission := current.IsResubmission()
	now := requestcontext.Now(ctx)
	event, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error { return e.CanSubmit() },
		func(e *models.Event) { e.ApplySubmission(now) },
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	s.metrics.Transitions.WithLabelValues("submit").Inc()
	s.audit.Emit(ctx, audit.Entry{
		UserID:         userID,
		Role:           requestcontext.Role(ctx),
		Action:         audit.ActionSubmit,
		EventID:        event.ID,
		RegistrationID: event.RegistrationID,
	})

	kind := notifmodels.KindEventSubmitted
	title := fmt.Sprintf("New %s registration submitted", event.Type)
	if resubmission {
		kind = notifmodels.KindEventResubmitted
		title = fmt.Sprintf("Corrected %s registration resubmitted", event.Type)
	}
	s.notify(ctx, func() error {
		return s.notifier.NotifyManagers(ctx, kind, title,
			fmt.Sprintf("Registration %s is awaiting review.", event.RegistrationID), &event.ID)
	})
	return event, nil
}

// Approve finalizes a pending record. Manager only.
func (s *Service) Approve(ctx context.Context, eventID domain.EventID) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "event.Approve")
	defer span.End()

	approver := requestcontext.UserID(ctx)
	if !requestcontext.Role(ctx).IsManager() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers can approve registrations")
	}

	now := requestcontext.Now(ctx)
	event, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error { return e.CanApprove() },
		func(e *models.Event) { e.ApplyApproval(approver, now) },
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	s.metrics.Transitions.WithLabelValues("approve").Inc()
	s.audit.Emit(ctx, audit.Entry{
		UserID:         approver,
		Role:           requestcontext.Role(ctx),
		Action:         audit.ActionApprove,
		EventID:        event.ID,
		RegistrationID: event.RegistrationID,
	})
	s.notify(ctx, func() error {
		return s.notifier.Notify(ctx, event.OwnerID, notifmodels.KindEventApproved,
			fmt.Sprintf("Your %s registration was approved", event.Type),
			fmt.Sprintf("Registration %s has been approved.", event.RegistrationID), &event.ID)
	})
	return event, nil
}

// Reject sends a pending record back to its owner with a reason. Manager
// only.
func (s *Service) Reject(ctx context.Context, eventID domain.EventID, reason string) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "event.Reject")
	defer span.End()

	rejector := requestcontext.UserID(ctx)
	if !requestcontext.Role(ctx).IsManager() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers can reject registrations")
	}
	reason = strings.TrimSpace(reason)

	now := requestcontext.Now(ctx)
	event, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error { return e.CanReject(reason) },
		func(e *models.Event) { e.ApplyRejection(rejector, reason, now) },
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	s.metrics.Transitions.WithLabelValues("reject").Inc()
	s.audit.Emit(ctx, audit.Entry{
		UserID:         rejector,
		Role:           requestcontext.Role(ctx),
		Action:         audit.ActionReject,
		EventID:        event.ID,
		RegistrationID: event.RegistrationID,
		Detail:         reason,
	})
	s.notify(ctx, func() error {
		return s.notifier.Notify(ctx, event.OwnerID, notifmodels.KindEventRejected,
			fmt.Sprintf("Your %s registration was rejected", event.Type),
			fmt.Sprintf("Registration %s was rejected: %s", event.RegistrationID, reason), &event.ID)
	})
	return event, nil
}

// Delete removes a record. Owners may delete their own draft or rejected
// records; managers may delete anything.
func (s *Service) Delete(ctx context.Context, eventID domain.EventID) error {
	userID := requestcontext.UserID(ctx)
	role := requestcontext.Role(ctx)

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return wrapEventErr(err)
	}
	if err := event.CanDelete(userID, role); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return wrapEventErr(err)
	}

	s.audit.Emit(ctx, audit.Entry{
		UserID:         userID,
		Role:           role,
		Action:         audit.ActionDelete,
		EventID:        event.ID,
		RegistrationID: event.RegistrationID,
	})
	return nil
}

// NextFreeRegistrationID previews the smallest unassigned positive integer.
// Advisory only.
func (s *Service) NextFreeRegistrationID(ctx context.Context) (int64, error) {
	return s.alloc.NextFree(ctx)
}

// CheckIDNumber runs the advisory identity-number lookup.
func (s *Service) CheckIDNumber(ctx context.Context, idNumber, name string) (*integrity.Advisory, error) {
	return s.integrity.CheckIDNumber(ctx, idNumber, name)
}

// notify runs a notification callback and degrades failures to log lines.
// Workflow outcomes never depend on notification delivery.
func (s *Service) notify(ctx context.Context, fn func() error) {
	if err := fn(); err != nil {
		s.logger.ErrorContext(ctx, "notification delivery failed", "error", err)
	}
}

// wrapEventErr translates store sentinels into coded domain errors and
// passes coded errors through untouched.
func wrapEventErr(err error) error {
	if err == nil {
		return nil
	}
	if dErrors.Details(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "registration id is already in use")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "operation not allowed in current state")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "event storage failure")
	}
}
