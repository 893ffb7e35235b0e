package audit

import (
	"time"

	"civreg/pkg/domain"
)

// Action names the audited operations of the registry workflow.
type Action string

const (
	ActionRegister           Action = "event.register"
	ActionUpdate             Action = "event.update"
	ActionSubmit             Action = "event.submit"
	ActionApprove            Action = "event.approve"
	ActionReject             Action = "event.reject"
	ActionDelete             Action = "event.delete"
	ActionCorrectionRequest  Action = "correction.request"
	ActionCorrectionApprove  Action = "correction.approve"
	ActionCorrectionReject   Action = "correction.reject"
	ActionCertificateRequest Action = "certificate.request"
	ActionCertificateApprove Action = "certificate.approve"
	ActionCertificateReject  Action = "certificate.reject"
)

// Entry is emitted from domain logic to capture one decision or mutation.
// Kept transport-agnostic so stores and sinks can fan out.
type Entry struct {
	Timestamp      time.Time      `json:"timestamp"`
	UserID         domain.UserID  `json:"userId"`
	Role           domain.Role    `json:"role,omitempty"`
	Action         Action         `json:"action"`
	EventID        domain.EventID `json:"eventId"`
	RegistrationID string         `json:"registrationId,omitempty"`
	Detail         string         `json:"detail,omitempty"`
	RequestID      string         `json:"requestId,omitempty"`
	DeviceName     string         `json:"deviceName,omitempty"`
	ClientIP       string         `json:"clientIp,omitempty"`
}
