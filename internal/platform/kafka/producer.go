package kafka

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes records to a single topic. A nil *Producer is valid and
// drops every publish, so callers can wire it unconditionally and let
// configuration decide whether Kafka participates.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewProducer connects to the given brokers. Returns nil when brokers is
// empty (Kafka not configured).
func NewProducer(brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &Producer{client: client, topic: topic, logger: logger}, nil
}

// Publish sends a record asynchronously. Delivery failures are logged, never
// returned: the audit trail's Kafka leg is best-effort by contract.
func (p *Producer) Publish(ctx context.Context, key string, payload []byte) {
	if p == nil {
		return
	}
	record := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: payload}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("kafka publish failed",
				"topic", p.topic,
				"key", key,
				"error", err,
			)
		}
	})
}

// Close flushes and releases the underlying client.
func (p *Producer) Close() {
	if p == nil {
		return
	}
	p.client.Close()
}
