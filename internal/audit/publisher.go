package audit

import (
	"context"
	"log/slog"

	"civreg/pkg/requestcontext"
)

// Publisher accepts audit entries from domain logic and hands them to the
// background worker through a buffered inbox. Emission never blocks a
// request: when the inbox is full the entry is dropped with a warning, which
// trades completeness for latency on the hot path.
type Publisher struct {
	inbox  chan Entry
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Entry, buffer), logger: logger}
}

// Emit stamps the entry with request-scoped metadata and queues it.
func (p *Publisher) Emit(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if entry.DeviceName == "" {
		entry.DeviceName = requestcontext.DeviceName(ctx)
	}
	if entry.ClientIP == "" {
		entry.ClientIP = requestcontext.ClientIP(ctx)
	}

	select {
	case p.inbox <- entry:
	default:
		p.logger.Warn("audit inbox full, dropping entry",
			"action", string(entry.Action),
			"event_id", entry.EventID.String(),
		)
	}
}

// Inbox exposes the entry channel for the worker.
func (p *Publisher) Inbox() <-chan Entry {
	return p.inbox
}
