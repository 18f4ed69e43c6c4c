// Package events delivers domain events to an EventPublisher.
package events

import (
	"context"
	"log/slog"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
)

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// Emit publishes an event for a change that has already committed. A
// failure is logged and swallowed.
func Emit(ctx context.Context, pub interfaces.EventPublisher, logger *slog.Logger, topic string, event any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, topic, event); err != nil {
		logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

var _ interfaces.EventPublisher = Nop{}
