package eventbus

import "fmt"

// Config is the subset of config.BusConfig the factory needs; redeclared here
// (rather than importing internal/config) to keep eventbus free of a
// dependency on the config package's other sections.
type Config struct {
	Backend       string // "memory" or "mem" (default), "redis", "gcp-pubsub"
	RedisAddr     string
	GCPProjectID  string
	GCPTopicPrefix string
	QueueCapacity int
}

// NewBus selects and constructs the bus backend named by cfg.Backend,
// mirroring the backend-selection switch of the teacher's reputation store
// factory.
func NewBus(cfg Config) (Bus, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisBus(cfg.RedisAddr, "tori:bus:", cfg.QueueCapacity)
	case "gcp-pubsub":
		return NewGCPPubSubBus(cfg.GCPProjectID, cfg.GCPTopicPrefix, cfg.QueueCapacity)
	case "", "mem", "memory":
		return NewMemBus(cfg.QueueCapacity), nil
	default:
		return nil, fmt.Errorf("eventbus: unknown backend %q", cfg.Backend)
	}
}
