package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus fans every publish out to a Redis channel (one channel per topic,
// namespaced by keyPrefix) so the four independently-deployed services can
// share one logical bus, while keeping the in-process MemBus for same-process
// subscribers.
type RedisBus struct {
	*MemBus

	rdb       *redis.Client
	keyPrefix string
	cancel    context.CancelFunc
}

// NewRedisBus dials Redis and starts a background subscriber per known topic
// that re-publishes incoming remote events into the embedded MemBus.
func NewRedisBus(addr, keyPrefix string, bufferSize int) (*RedisBus, error) {
	if keyPrefix == "" {
		keyPrefix = "tori:bus:"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     20,
	})

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelPing()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed (%s): %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisBus{
		MemBus:    NewMemBus(bufferSize),
		rdb:       rdb,
		keyPrefix: keyPrefix,
		cancel:    cancel,
	}

	topics := []string{
		TopicEpisodeCreated,
		TopicConceptDelta,
		TopicActivationTrace,
		TopicGraphPruned,
		TopicCouplingUpdate,
	}
	for _, topic := range topics {
		bus.subscribeRemote(ctx, topic)
	}

	slog.Info("redis event bus connected", "addr", addr, "prefix", keyPrefix)
	return bus, nil
}

func (b *RedisBus) channelName(topic string) string {
	return b.keyPrefix + topic
}

// subscribeRemote starts a goroutine that bridges a Redis channel into the
// embedded MemBus so local subscribers observe events published by other
// processes.
func (b *RedisBus) subscribeRemote(ctx context.Context, topic string) {
	sub := b.rdb.Subscribe(ctx, b.channelName(topic))
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("eventbus: dropping malformed redis message", "topic", topic, "error", err)
					continue
				}
				b.MemBus.Publish(ev.Topic, ev.Data)
			}
		}
	}()
}

// Publish fans the event to local subscribers and publishes it to Redis for
// the other processes sharing this bus.
func (b *RedisBus) Publish(topic string, data map[string]any) {
	b.MemBus.Publish(topic, data)

	payload, err := json.Marshal(&Event{Topic: topic, Time: time.Now(), Data: data})
	if err != nil {
		slog.Error("eventbus: failed to marshal event for redis", "topic", topic, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, b.channelName(topic), payload).Err(); err != nil {
		slog.Error("eventbus: redis publish failed", "topic", topic, "error", err)
	}
}

// Close stops the background subscribers and closes the Redis client.
func (b *RedisBus) Close() error {
	b.cancel()
	if err := b.MemBus.Close(); err != nil {
		return err
	}
	return b.rdb.Close()
}

var _ Bus = (*RedisBus)(nil)
