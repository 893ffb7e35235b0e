// Package certificate abstracts certificate production and delivery. Both
// steps are downstream of the approval decision: a failure here never undoes
// an approval, it only degrades the result to a partial success.
package certificate

import (
	"context"
	"fmt"
	"log/slog"

	"civreg/internal/event/models"
)

// Renderer produces the certificate artifact for an approved request and
// returns a reference the client can use to retrieve it.
type Renderer interface {
	Render(ctx context.Context, event *models.Event, request *models.CertificateRequest) (ref string, err error)
}

// Mailer dispatches the issued certificate reference to the requester.
type Mailer interface {
	Send(ctx context.Context, event *models.Event, request *models.CertificateRequest, ref string) error
}

// DevRenderer issues a deterministic reference without producing a real
// artifact. Used in development and tests.
type DevRenderer struct{}

func (DevRenderer) Render(_ context.Context, event *models.Event, request *models.CertificateRequest) (string, error) {
	return fmt.Sprintf("cert/%s/%s/%s", event.Type, event.RegistrationID, request.ID.String()), nil
}

// LogMailer records the dispatch instead of sending anything.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, event *models.Event, request *models.CertificateRequest, ref string) error {
	m.Logger.InfoContext(ctx, "certificate dispatch",
		"registration_id", event.RegistrationID,
		"request_id", request.ID.String(),
		"requester", request.RequesterName,
		"ref", ref)
	return nil
}
