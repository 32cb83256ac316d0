// Package kafka publishes command outcome events to a Kafka topic. It is
// the production counterpart of the in-memory bus; both satisfy the
// command pipeline's publish sink.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"conduit/internal/platform/metrics"
)

// Config holds the publisher's connection settings.
type Config struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// Publisher produces events asynchronously. Acknowledged records count
// toward the delivered metric; failures are logged but never reported
// back to the command pipeline, matching its best-effort publish contract.
type Publisher struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherMetrics attaches the shared metrics set.
func WithPublisherMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

// NewPublisher connects to the brokers and ensures the topic exists.
func NewPublisher(ctx context.Context, cfg Config, logger *slog.Logger, opts ...PublisherOption) (*Publisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "conduit"
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, cfg.Topic); err != nil {
		client.Close()
		return nil, err
	}

	p := &Publisher{client: client, topic: cfg.Topic, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, -1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %q: %w", topic, resp.Err)
	}
	return nil
}

// Publish marshals the payload and produces one record keyed by event
// type. The signature matches the command pipeline's publish sink.
func (p *Publisher) Publish(eventType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("marshal event for kafka", "event_type", eventType, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(eventType),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}

	p.client.Produce(context.Background(), record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("kafka produce failed", "event_type", eventType, "error", err)
			return
		}
		p.metrics.ObserveDelivered(1)
	})
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	p.client.Close()
	return nil
}
