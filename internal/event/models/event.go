package models

import (
	"time"

	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
)

// EventType enumerates the registrable vital events.
type EventType string

const (
	EventBirth    EventType = "birth"
	EventMarriage EventType = "marriage"
	EventDeath    EventType = "death"
	EventDivorce  EventType = "divorce"
)

var validEventTypes = map[EventType]bool{
	EventBirth:    true,
	EventMarriage: true,
	EventDeath:    true,
	EventDivorce:  true,
}

func ParseEventType(raw string) (EventType, error) {
	t := EventType(raw)
	if !validEventTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown event type: "+raw)
	}
	return t, nil
}

// EventStatus is the workflow state of a record.
type EventStatus string

const (
	StatusDraft    EventStatus = "draft"
	StatusPending  EventStatus = "pending"
	StatusApproved EventStatus = "approved"
	StatusRejected EventStatus = "rejected"
)

// RequestStatus is the state of a correction or certificate-request
// sub-entity. Sub-entity state is independent of the parent event's status.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Data is the open attribute mapping of a record. Keys may be canonical or
// legacy aliases; canonical keys are guaranteed present only after the
// canonicalizer runs.
type Data map[string]any

// Clone returns a shallow copy so callers can add derived keys without
// mutating the original submission.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// CertificateRequest is a request to issue a certificate for an approved
// event. Requester fields identify the person collecting the certificate.
type CertificateRequest struct {
	ID                domain.CertificateRequestID `json:"id"`
	Status            RequestStatus               `json:"status"`
	RequesterName     string                      `json:"requesterName"`
	RequesterIDNumber string                      `json:"requesterIdNumber"`
	RequesterRelation string                      `json:"requesterRelation,omitempty"`
	RequestedBy       domain.UserID               `json:"requestedBy"`
	RequestedAt       time.Time                   `json:"requestedAt"`
	ResolvedBy        *domain.UserID              `json:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time                  `json:"resolvedAt,omitempty"`
	RejectionReason   string                      `json:"rejectionReason,omitempty"`
	// CertificateRef points at the issued certificate once rendering succeeds.
	CertificateRef string `json:"certificateRef,omitempty"`
	// DeliveryNote records a downstream rendering or email failure. The
	// approval itself stands; the note is surfaced as a partial-success
	// warning.
	DeliveryNote string `json:"deliveryNote,omitempty"`
}

// Correction is an owner-initiated request to amend an event's data. Approving
// a correction does not itself mutate the parent event; the follow-up edit is
// a separate operation.
type Correction struct {
	ID          domain.CorrectionID `json:"id"`
	Status      RequestStatus       `json:"status"`
	Details     string              `json:"details"`
	Response    string              `json:"response,omitempty"`
	RequestedAt time.Time           `json:"requestedAt"`
	ResolvedBy  *domain.UserID      `json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time          `json:"resolvedAt,omitempty"`
}

// Event is the aggregate root for one vital-event record.
//
// Invariants:
//   - RegistrationID is unique across the collection, case-insensitively,
//     and immutable after creation.
//   - Status and decision metadata are consistent: approved implies
//     ApprovedBy set and RejectedBy/RejectionReason absent; rejected implies
//     the inverse.
//   - All status mutation goes through the Can/Apply transition methods; no
//     other component writes Status directly.
type Event struct {
	ID             domain.EventID `json:"id"`
	Type           EventType      `json:"type"`
	RegistrationID string         `json:"registrationId"`
	Data           Data           `json:"data"`
	Status         EventStatus    `json:"status"`

	SubmittedByRole domain.Role   `json:"submittedByRole"`
	OwnerID         domain.UserID `json:"ownerId"`

	ApprovedBy      *domain.UserID `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	RejectedBy      *domain.UserID `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time     `json:"rejectedAt,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	RequestedCertificates []CertificateRequest `json:"requestedCertificates,omitempty"`
	Corrections           []Correction         `json:"corrections,omitempty"`
}

func NewEvent(eventType EventType, registrationID string, data Data, role domain.Role, owner domain.UserID, now time.Time) (*Event, error) {
	if registrationID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration id cannot be empty")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event owner is required")
	}
	return &Event{
		ID:              domain.NewEventID(),
		Type:            eventType,
		RegistrationID:  registrationID,
		Data:            data,
		Status:          StatusDraft,
		SubmittedByRole: role,
		OwnerID:         owner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// CanSubmit checks the draft|rejected -> pending transition.
func (e *Event) CanSubmit() error {
	if e.Status != StatusDraft && e.Status != StatusRejected {
		return dErrors.New(dErrors.CodeInvalidState, "only draft or rejected records can be submitted")
	}
	return nil
}

// ApplySubmission moves the record to pending and stamps the submission time.
// Call CanSubmit first to validate the transition.
func (e *Event) ApplySubmission(now time.Time) {
	e.Status = StatusPending
	e.SubmittedAt = &now
	e.UpdatedAt = now
}

// IsResubmission reports whether a submit from the current state would be a
// resubmission after rejection rather than a first submission. Observers are
// notified differently for the two cases.
func (e *Event) IsResubmission() bool {
	return e.Status == StatusRejected
}

// CanApprove checks the pending -> approved transition.
func (e *Event) CanApprove() error {
	if e.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "only pending records can be approved")
	}
	return nil
}

// ApplyApproval stamps the approver and clears any prior rejection metadata
// so decision fields stay mutually exclusive. Call CanApprove first.
func (e *Event) ApplyApproval(approver domain.UserID, now time.Time) {
	e.Status = StatusApproved
	e.ApprovedBy = &approver
	e.ApprovedAt = &now
	e.RejectedBy = nil
	e.RejectedAt = nil
	e.RejectionReason = ""
	e.UpdatedAt = now
}

// CanReject checks the pending -> rejected transition. A non-empty reason is
// part of the transition data.
func (e *Event) CanReject(reason string) error {
	if e.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "only pending records can be rejected")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeBadRequest, "rejection requires a reason")
	}
	return nil
}

// ApplyRejection stamps the rejector and reason and clears any prior approval
// metadata. Call CanReject first.
func (e *Event) ApplyRejection(rejector domain.UserID, reason string, now time.Time) {
	e.Status = StatusRejected
	e.RejectedBy = &rejector
	e.RejectedAt = &now
	e.RejectionReason = reason
	e.ApprovedBy = nil
	e.ApprovedAt = nil
	e.UpdatedAt = now
}

// CanEdit reports whether the given user may modify the record's data.
// Owners edit while the record is draft or rejected.
func (e *Event) CanEdit(userID domain.UserID) error {
	if e.OwnerID != userID {
		return dErrors.New(dErrors.CodeForbidden, "only the record owner can edit it")
	}
	if e.Status != StatusDraft && e.Status != StatusRejected {
		return dErrors.New(dErrors.CodeInvalidState, "only draft or rejected records can be edited")
	}
	return nil
}

// CanDelete enforces the deletion guard: owners may delete draft or rejected
// records; managers may delete regardless of status.
func (e *Event) CanDelete(userID domain.UserID, role domain.Role) error {
	if role.IsManager() {
		return nil
	}
	if e.OwnerID != userID {
		return dErrors.New(dErrors.CodeForbidden, "only the record owner or a manager can delete it")
	}
	if e.Status != StatusDraft && e.Status != StatusRejected {
		return dErrors.New(dErrors.CodeInvalidState, "pending or approved records cannot be deleted by their owner")
	}
	return nil
}

// CanRequestCertificate checks that the parent event accepts certificate
// requests.
func (e *Event) CanRequestCertificate() error {
	if e.Status != StatusApproved {
		return dErrors.New(dErrors.CodeInvalidState, "certificates can only be requested for approved records")
	}
	return nil
}

// FindCorrection returns a pointer into the Corrections slice, or nil.
func (e *Event) FindCorrection(id domain.CorrectionID) *Correction {
	for i := range e.Corrections {
		if e.Corrections[i].ID == id {
			return &e.Corrections[i]
		}
	}
	return nil
}

// FindCertificateRequest returns a pointer into the RequestedCertificates
// slice, or nil.
func (e *Event) FindCertificateRequest(id domain.CertificateRequestID) *CertificateRequest {
	for i := range e.RequestedCertificates {
		if e.RequestedCertificates[i].ID == id {
			return &e.RequestedCertificates[i]
		}
	}
	return nil
}

// Clone deep-copies the event so store reads never alias store state.
func (e *Event) Clone() *Event {
	out := *e
	out.Data = e.Data.Clone()
	out.RequestedCertificates = append([]CertificateRequest(nil), e.RequestedCertificates...)
	out.Corrections = append([]Correction(nil), e.Corrections...)
	return &out
}
