package mq

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskboard/apiserver/config"
)

// ErrDisabled is returned by New when no broker is configured.
var ErrDisabled = errors.New("mq: no provider configured")

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the event bus.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// New builds the broker backend selected by config. With no provider
// configured the event bus is disabled and notifications are dropped.
func New(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch cfg.Provider {
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub)
	case "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("mq: unknown provider %q", cfg.Provider)
	}
}
