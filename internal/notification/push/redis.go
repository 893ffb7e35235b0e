package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"civreg/internal/notification/models"
	platformredis "civreg/internal/platform/redis"
	"civreg/pkg/domain"
)

// RedisBroker fans notifications out over Redis Pub/Sub so pushes reach
// subscribers connected to any instance. Channels are per-user; Pub/Sub's
// at-most-once delivery matches the best-effort contract.
type RedisBroker struct {
	client *platformredis.Client
	logger *slog.Logger
}

func NewRedisBroker(client *platformredis.Client, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

func channelFor(userID domain.UserID) string {
	return "notifications:" + userID.String()
}

func (b *RedisBroker) Publish(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := b.client.Publish(ctx, channelFor(n.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID domain.UserID) (<-chan *models.Notification, func(), error) {
	sub := b.client.Subscribe(ctx, channelFor(userID))
	// Confirm the subscription before handing the channel out, so a publish
	// racing the subscribe is not silently lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe notifications: %w", err)
	}

	out := make(chan *models.Notification, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var n models.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				b.logger.Warn("dropping malformed pushed notification", "error", err)
				continue
			}
			select {
			case out <- &n:
			default:
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}

func (b *RedisBroker) Close() error {
	return nil
}
