package usecase

import "context"

// DomainEvent is one entry for the append-only event log that downstream
// projections consume. IdempotencyKey lets at-least-once consumers
// dedupe replays.
type DomainEvent struct {
	OrganizationID string
	Type           string
	IdempotencyKey string
	SourceType     string
	SourceID       string
	ActorUserID    string
	Payload        map[string]any
}

// EventPublisher appends domain events to the shared event log and
// returns the assigned log id. The core only depends on this capability,
// never on a concrete substrate.
type EventPublisher interface {
	Append(ctx context.Context, event DomainEvent) (int64, error)
}

// NopPublisher drops events. Used when a deployment runs without the
// event log substrate.
type NopPublisher struct{}

func (NopPublisher) Append(context.Context, DomainEvent) (int64, error) { return 0, nil }

func publishSafe(ctx context.Context, publisher EventPublisher, event DomainEvent) {
	if publisher == nil {
		return
	}
	// Event propagation is best effort; a downed substrate must not roll
	// back the enclosing transaction.
	_, _ = publisher.Append(ctx, event)
}
