package interfaces

import "context"

// EventPublisher delivers domain events after commit. A publish failure
// never undoes a committed ledger change.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
