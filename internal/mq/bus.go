package mq

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/taskboard/apiserver/types"
)

// Bus publishes and consumes notification events over a broker backend.
// It satisfies the services.EventPublisher interface.
type Bus struct {
	backend Backend
	stream  string
}

// NewBus wraps a backend, routing all events through the named stream.
func NewBus(backend Backend, stream string) *Bus {
	return &Bus{backend: backend, stream: stream}
}

// Publish sends the event to the stream as JSON. The event kind rides
// along as a message attribute so consumers can filter without decoding.
func (b *Bus) Publish(ctx context.Context, ev types.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = b.backend.Publish(ctx, b.stream, data, map[string]string{"kind": ev.Kind})
	return err
}

// Consume subscribes to the stream and feeds decoded events to fn.
// Undecodable payloads are acked and logged; redelivering them cannot
// help. It blocks until the context is canceled.
func (b *Bus) Consume(ctx context.Context, fn func(ctx context.Context, ev types.Event) error) error {
	return b.backend.Subscribe(ctx, b.stream, func(ctx context.Context, msg Message) error {
		var ev types.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logrus.WithError(err).WithField("message_id", msg.ID).Warn("dropping undecodable event")
			return nil
		}
		if err := fn(ctx, ev); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"event_id": ev.ID,
				"kind":     ev.Kind,
			}).Error("event handler failed")
			return err
		}
		return nil
	})
}

// Close closes the underlying backend.
func (b *Bus) Close() error {
	return b.backend.Close()
}
