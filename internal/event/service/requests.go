package service

import (
	"context"
	"fmt"
	"strings"

	"civreg/internal/audit"
	"civreg/internal/event/models"
	notifmodels "civreg/internal/notification/models"
	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/requestcontext"
)

// Correction and certificate sub-flows. Sub-entity state is independent of
// the parent event: approving a correction records the decision but does
// not itself amend the record — the follow-up edit is the owner's separate
// operation.

// RequestCorrection files a correction request against the caller's record.
func (s *Service) RequestCorrection(ctx context.Context, eventID domain.EventID, details string) (*models.Event, error) {
	userID := requestcontext.UserID(ctx)
	details = strings.TrimSpace(details)
	if details == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "correction details are required")
	}

	now := requestcontext.Now(ctx)
	correction := models.Correction{
		ID:          domain.NewCorrectionID(),
		Status:      models.RequestPending,
		Details:     details,
		RequestedAt: now,
	}
	event, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error {
			if e.OwnerID != userID {
				return dErrors.New(dErrors.CodeForbidden, "only the record owner can request corrections")
			}
			return nil
		},
		func(e *models.Event) {
			e.Corrections = append(e.Corrections, correction)
			e.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	s.audit.Emit(ctx, audit.Entry{
		UserID:         userID,
		Role:           requestcontext.Role(ctx),
		Action:         audit.ActionCorrectionRequest,
		EventID:        event.ID,
		RegistrationID: event.RegistrationID,
		Detail:         details,
	})
	s.notify(ctx, func() error {
		return s.notifier.NotifyManagers(ctx, notifmodels.KindCorrectionRequested,
			fmt.Sprintf("Correction requested on %s registration", event.Type),
			fmt.Sprintf("Registration %s has a pending correction request.", event.RegistrationID), &event.ID)
	})
	return event, nil
}

// ResolveCorrection approves or rejects a pending correction. Manager only.
// A rejection requires a response message.
func (s *Service) ResolveCorrection(ctx context.Context, eventID domain.EventID, correctionID domain.CorrectionID, approve bool, response string) (*models.Event, error) {
	resolver := requestcontext.UserID(ctx)
	if !requestcontext.Role(ctx).IsManager() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers can resolve corrections")
	}
	response = strings.TrimSpace(response)

	now := requestcontext.Now(ctx)
	event, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error {
			correction := e.FindCorrection(correctionID)
			if correction == nil {
				return dErrors.New(dErrors.CodeNotFound, "correction not found")
			}
			if approve {
				return correction.CanResolve()
			}
			return correction.CanReject(response)
		},
		func(e *models.Event) {
			correction := e.FindCorrection(correctionID)
			if approve {
				correction.ApplyApproval(resolver, response, now)
			} else {
				correction.ApplyRejection(resolver, response, now)
			}
			e.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	action := audit.ActionCorrectionApprove
	outcome := "approved"
	if !approve {
		action = audit.ActionCorrectionReject
		outcome = "rejected"
	}
	s.metrics.Transitions.WithLabelValues("correction_" + outcome).Inc()
	s.audit.Emit(ctx, audit.Entry{
		UserID:         resolver,
		Role:           requestcontext.Role(ctx),
		Action:         action,
		EventID:        event.ID,
		RegistrationID: event.RegistrationID,
		Detail:         response,
	})
	s.notify(ctx, func() error {
		return s.notifier.Notify(ctx, event.OwnerID, notifmodels.KindCorrectionResolved,
			fmt.Sprintf("Your correction request was %s", outcome),
			fmt.Sprintf("The correction request on registration %s was %s.", event.RegistrationID, outcome), &event.ID)
	})
	return event, nil
}

// CertificateInput identifies the person collecting the certificate.
type CertificateInput struct {
	RequesterName     string
	RequesterIDNumber string
	RequesterRelation string
}

// RequestCertificate files a certificate request against an approved record.
func (s *Service) RequestCertificate(ctx context.Context, eventID domain.EventID, input CertificateInput) (*models.Event, error) {
	userID := requestcontext.UserID(ctx)
	if strings.TrimSpace(input.RequesterName) == "" || strings.TrimSpace(input.RequesterIDNumber) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "requester name and identity number are required")
	}

	now := requestcontext.Now(ctx)
	request := models.CertificateRequest{
		ID:                domain.NewCertificateRequestID(),
		Status:            models.RequestPending,
		RequesterName:     strings.TrimSpace(input.RequesterName),
		RequesterIDNumber: strings.TrimSpace(input.RequesterIDNumber),
		RequesterRelation: strings.TrimSpace(input.RequesterRelation),
		RequestedBy:       userID,
		RequestedAt:       now,
	}
	event, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error { return e.CanRequestCertificate() },
		func(e *models.Event) {
			e.RequestedCertificates = append(e.RequestedCertificates, request)
			e.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	s.audit.Emit(ctx, audit.Entry{
		UserID:         userID,
		Role:           requestcontext.Role(ctx),
		Action:         audit.ActionCertificateRequest,
		EventID:        event.ID,
		RegistrationID: event.RegistrationID,
	})
	s.notify(ctx, func() error {
		return s.notifier.NotifyManagers(ctx, notifmodels.KindCertificateRequested,
			fmt.Sprintf("Certificate requested for %s registration", event.Type),
			fmt.Sprintf("Registration %s has a pending certificate request.", event.RegistrationID), &event.ID)
	})
	return event, nil
}

// ResolveCertificate approves or rejects a pending certificate request.
// Manager only. On approval the certificate is rendered and dispatched after
// the decision is committed; a downstream failure leaves the approval
// standing and records a delivery note on the request instead of failing the
// call.
func (s *Service) ResolveCertificate(ctx context.Context, eventID domain.EventID, requestID domain.CertificateRequestID, approve bool, reason string) (*models.Event, error) {
	resolver := requestcontext.UserID(ctx)
	if !requestcontext.Role(ctx).IsManager() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers can resolve certificate requests")
	}
	reason = strings.TrimSpace(reason)

	now := requestcontext.Now(ctx)
	event, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error {
			request := e.FindCertificateRequest(requestID)
			if request == nil {
				return dErrors.New(dErrors.CodeNotFound, "certificate request not found")
			}
			if approve {
				return request.CanResolve()
			}
			return request.CanReject(reason)
		},
		func(e *models.Event) {
			request := e.FindCertificateRequest(requestID)
			if approve {
				request.ApplyApproval(resolver, now)
			} else {
				request.ApplyRejection(resolver, reason, now)
			}
			e.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	action := audit.ActionCertificateApprove
	outcome := "approved"
	if !approve {
		action = audit.ActionCertificateReject
		outcome = "rejected"
	}
	s.metrics.Transitions.WithLabelValues("certificate_" + outcome).Inc()
	s.audit.Emit(ctx, audit.Entry{
		UserID:         resolver,
		Role:           requestcontext.Role(ctx),
		Action:         action,
		EventID:        event.ID,
		RegistrationID: event.RegistrationID,
		Detail:         reason,
	})

	if approve {
		event = s.deliverCertificate(ctx, event, requestID)
	}

	s.notify(ctx, func() error {
		return s.notifier.Notify(ctx, event.OwnerID, notifmodels.KindCertificateResolved,
			fmt.Sprintf("Certificate request %s", outcome),
			fmt.Sprintf("The certificate request on registration %s was %s.", event.RegistrationID, outcome), &event.ID)
	})
	return event, nil
}

// deliverCertificate renders and dispatches the certificate for an approved
// request, then records the outcome on the stored request. Failures degrade
// to a delivery note; the approval is never rolled back.
func (s *Service) deliverCertificate(ctx context.Context, event *models.Event, requestID domain.CertificateRequestID) *models.Event {
	request := event.FindCertificateRequest(requestID)
	ref, err := s.renderer.Render(ctx, event, request)
	note := ""
	if err != nil {
		note = "certificate rendering failed; issuance will be retried manually"
		s.metrics.CertificateFailures.Inc()
		s.logger.ErrorContext(ctx, "certificate rendering failed",
			"event_id", event.ID.String(), "request_id", requestID.String(), "error", err)
	} else if err := s.mailer.Send(ctx, event, request, ref); err != nil {
		note = "certificate issued but delivery failed"
		s.metrics.CertificateFailures.Inc()
		s.logger.ErrorContext(ctx, "certificate dispatch failed",
			"event_id", event.ID.String(), "request_id", requestID.String(), "error", err)
	}

	now := requestcontext.Now(ctx)
	updated, uerr := s.events.Execute(ctx, event.ID,
		func(e *models.Event) error {
			if e.FindCertificateRequest(requestID) == nil {
				return dErrors.New(dErrors.CodeNotFound, "certificate request not found")
			}
			return nil
		},
		func(e *models.Event) {
			r := e.FindCertificateRequest(requestID)
			r.CertificateRef = ref
			r.DeliveryNote = note
			e.UpdatedAt = now
		},
	)
	if uerr != nil {
		s.logger.ErrorContext(ctx, "failed to record certificate outcome",
			"event_id", event.ID.String(), "request_id", requestID.String(), "error", uerr)
		return event
	}
	return updated
}
