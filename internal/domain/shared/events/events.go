package events

import "time"

// DomainEvent is implemented by every fact an aggregate records.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Recorder is satisfied by aggregates embedding EventRecorder.
type Recorder interface {
	PendingEvents() []DomainEvent
	ClearEvents()
}

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

// Drain returns the pending events of every recorder and clears them.
func Drain(recorders ...Recorder) []DomainEvent {
	var out []DomainEvent
	for _, rec := range recorders {
		if rec == nil {
			continue
		}
		out = append(out, rec.PendingEvents()...)
		rec.ClearEvents()
	}
	return out
}
