package models

import (
	"time"

	"civreg/pkg/domain"
)

// Kind categorizes a notification so clients can route and render it.
type Kind string

const (
	KindEventSubmitted       Kind = "event_submitted"
	KindEventResubmitted     Kind = "event_resubmitted"
	KindEventApproved        Kind = "event_approved"
	KindEventRejected        Kind = "event_rejected"
	KindCorrectionRequested  Kind = "correction_requested"
	KindCorrectionResolved   Kind = "correction_resolved"
	KindCertificateRequested Kind = "certificate_requested"
	KindCertificateResolved  Kind = "certificate_resolved"
)

// Notification is one message addressed to one user. Delivery is split in
// two: the stored copy is durable and authoritative, the pushed copy is
// best-effort.
type Notification struct {
	ID      domain.NotificationID `json:"id"`
	UserID  domain.UserID         `json:"userId"`
	Kind    Kind                  `json:"kind"`
	Title   string                `json:"title"`
	Body    string                `json:"body"`
	EventID *domain.EventID       `json:"eventId,omitempty"`
	Read    bool                  `json:"read"`

	CreatedAt time.Time `json:"createdAt"`
}

func New(userID domain.UserID, kind Kind, title, body string, eventID *domain.EventID, now time.Time) *Notification {
	return &Notification{
		ID:        domain.NewNotificationID(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		EventID:   eventID,
		CreatedAt: now,
	}
}
