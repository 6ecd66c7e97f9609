package events

import "time"

// DomainEvent is a fact recorded by an aggregate and shipped through the outbox.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded by aggregates that emit events.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}

type Base struct {
	Name      string    `json:"-"`
	Aggregate string    `json:"aggregate_id"`
	Time      time.Time `json:"occurred_at"`
}

func NewBase(name, aggregate string, at time.Time) Base {
	if at.IsZero() {
		at = time.Now()
	}
	return Base{Name: name, Aggregate: aggregate, Time: at.UTC()}
}

func (e Base) EventName() string {
	return e.Name
}

func (e Base) AggregateID() string {
	return e.Aggregate
}

func (e Base) OccurredAt() time.Time {
	return e.Time
}
