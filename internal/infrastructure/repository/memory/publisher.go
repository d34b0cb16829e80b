package memory

import (
	"context"
	"sync"

	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

// EventPublisher records appended domain events for inspection.
type EventPublisher struct {
	mu      sync.Mutex
	entries []usecase.DomainEvent
}

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

func (p *EventPublisher) Append(_ context.Context, event usecase.DomainEvent) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = append(p.entries, event)
	return int64(len(p.entries)), nil
}

func (p *EventPublisher) Entries() []usecase.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]usecase.DomainEvent(nil), p.entries...)
}

// ByType returns recorded events matching the given type.
func (p *EventPublisher) ByType(eventType string) []usecase.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []usecase.DomainEvent
	for _, e := range p.entries {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
