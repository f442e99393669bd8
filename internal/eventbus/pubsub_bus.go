package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
)

// GCPPubSubBus wraps the in-memory MemBus and also publishes every event to a
// Google Cloud Pub/Sub topic. The embedded MemBus serves same-process
// subscribers. Unlike RedisBus, it only publishes outward: it holds no
// Pub/Sub subscription, so events that other processes publish to the topic
// are not delivered to its local subscribers.
type GCPPubSubBus struct {
	*MemBus

	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewGCPPubSubBus creates a Pub/Sub-backed bus on the single topic
// topicPrefix+"events", creating it if it does not already exist. All five
// wire topics share that Pub/Sub topic; each message carries its wire topic
// in the "topic" attribute and as its ordering key.
func NewGCPPubSubBus(projectID, topicPrefix string, bufferSize int) (*GCPPubSubBus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}

	topicID := topicPrefix + "events"
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("topic.Exists: %w", err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("CreateTopic: %w", err)
		}
		slog.Info("created pubsub topic", "topic", topicID)
	}
	topic.EnableMessageOrdering = true

	bus := &GCPPubSubBus{
		MemBus: NewMemBus(bufferSize),
		client: client,
		topic:  topic,
	}
	slog.Info("connected to pubsub topic", "project", projectID, "topic", topicID)
	return bus, nil
}

// Publish fans the event to local subscribers and publishes it durably to
// Pub/Sub, ordered per-topic.
func (b *GCPPubSubBus) Publish(topic string, data map[string]any) {
	b.MemBus.Publish(topic, data)

	ev := &Event{Topic: topic, Time: time.Now(), Data: data}
	payload, err := ev.JSON()
	if err != nil {
		slog.Error("eventbus: failed to marshal event for pubsub", "topic", topic, "error", err)
		return
	}

	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"topic": topic,
			"time":  ev.Time.Format(time.RFC3339Nano),
		},
		OrderingKey: topic,
	}
	result := b.topic.Publish(context.Background(), msg)
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			slog.Error("eventbus: pubsub publish failed", "topic", topic, "error", err)
		}
	}()
}

// Close gracefully shuts down the Pub/Sub client and embedded MemBus.
func (b *GCPPubSubBus) Close() error {
	b.topic.Stop()
	if err := b.MemBus.Close(); err != nil {
		return err
	}
	return b.client.Close()
}

// HealthCheck verifies the Pub/Sub topic is reachable.
func (b *GCPPubSubBus) HealthCheck(ctx context.Context) error {
	exists, err := b.topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("topic health check: %w", err)
	}
	if !exists {
		return fmt.Errorf("topic does not exist")
	}
	return nil
}

var _ Bus = (*GCPPubSubBus)(nil)
