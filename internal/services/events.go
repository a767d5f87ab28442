package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/taskboard/apiserver/types"
)

// EventPublisher delivers notification events to the event bus. The mq
// package provides the real implementation; a disabled bus uses
// NopPublisher so feature services never have to nil-check.
type EventPublisher interface {
	Publish(ctx context.Context, event types.Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, types.Event) error {
	return nil
}

// publish delivers an event best effort: notification delivery must not
// fail the request that produced it, but a lost event is worth a log
// line.
func publish(ctx context.Context, bus EventPublisher, event types.Event) {
	if err := bus.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"kind":    event.Kind,
			"project": event.ProjectID,
		}).Warn("event publish failed")
	}
}
