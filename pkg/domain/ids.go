package domain

import (
	"github.com/google/uuid"

	dErrors "civreg/pkg/domain-errors"
)

// Typed identifiers keep the compiler between unrelated IDs. Conversions to and
// from uuid.UUID are explicit so a CorrectionID can never be passed where an
// EventID is expected.
type (
	EventID              uuid.UUID
	UserID               uuid.UUID
	NotificationID       uuid.UUID
	CorrectionID         uuid.UUID
	CertificateRequestID uuid.UUID
)

func NewEventID() EventID                           { return EventID(uuid.New()) }
func NewUserID() UserID                             { return UserID(uuid.New()) }
func NewNotificationID() NotificationID             { return NotificationID(uuid.New()) }
func NewCorrectionID() CorrectionID                 { return CorrectionID(uuid.New()) }
func NewCertificateRequestID() CertificateRequestID { return CertificateRequestID(uuid.New()) }

func (id EventID) String() string              { return uuid.UUID(id).String() }
func (id UserID) String() string               { return uuid.UUID(id).String() }
func (id NotificationID) String() string       { return uuid.UUID(id).String() }
func (id CorrectionID) String() string         { return uuid.UUID(id).String() }
func (id CertificateRequestID) String() string { return uuid.UUID(id).String() }

func (id EventID) IsNil() bool              { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool               { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CorrectionID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id CertificateRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IDs travel as canonical UUID strings in JSON and stored documents.

func (id EventID) MarshalText() ([]byte, error)              { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)               { return []byte(id.String()), nil }
func (id NotificationID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id CorrectionID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id CertificateRequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *EventID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	*id = EventID(parsed)
	return err
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	*id = UserID(parsed)
	return err
}

func (id *NotificationID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	*id = NotificationID(parsed)
	return err
}

func (id *CorrectionID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	*id = CorrectionID(parsed)
	return err
}

func (id *CertificateRequestID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	*id = CertificateRequestID(parsed)
	return err
}

// parseUUID enforces the boundary invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil UUID")
	}
	return parsed, nil
}

func ParseEventID(raw string) (EventID, error) {
	parsed, err := parseUUID(raw, "event id")
	return EventID(parsed), err
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user id")
	return UserID(parsed), err
}

func ParseNotificationID(raw string) (NotificationID, error) {
	parsed, err := parseUUID(raw, "notification id")
	return NotificationID(parsed), err
}

func ParseCorrectionID(raw string) (CorrectionID, error) {
	parsed, err := parseUUID(raw, "correction id")
	return CorrectionID(parsed), err
}

func ParseCertificateRequestID(raw string) (CertificateRequestID, error) {
	parsed, err := parseUUID(raw, "certificate request id")
	return CertificateRequestID(parsed), err
}
