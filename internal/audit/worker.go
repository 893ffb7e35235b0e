package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"civreg/internal/platform/kafka"
)

// Worker drains the publisher's inbox, persists each entry, and mirrors it
// to the Kafka audit topic. Persistence failures are logged and the worker
// keeps running; the trail is observational and must never take the service
// down with it.
type Worker struct {
	store    Store
	producer *kafka.Producer
	inbox    <-chan Entry
	logger   *slog.Logger
}

func NewWorker(store Store, producer *kafka.Producer, inbox <-chan Entry, logger *slog.Logger) *Worker {
	return &Worker{store: store, producer: producer, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			w.process(ctx, entry)
		}
	}
}

func (w *Worker) process(ctx context.Context, entry Entry) {
	if err := w.store.Append(ctx, entry); err != nil {
		w.logger.Error("audit append failed",
			"action", string(entry.Action),
			"event_id", entry.EventID.String(),
			"error", err,
		)
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		w.logger.Error("audit entry marshal failed", "error", err)
		return
	}
	w.producer.Publish(ctx, entry.EventID.String(), payload)
}
