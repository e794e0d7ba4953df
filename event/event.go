// Package event implements a priority-ordered hook dispatch engine.
//
// Handlers are registered per event type, ordered by priority tier and
// registration order, and run under one of three execution kinds:
// synchronous, deferred (coroutines stepped by a scheduler) or async
// (futures). Cancellable events carry a Decision slot that handlers
// vote into; the last vote wins and names its handler.
package event

import "time"

// Type identifies an event type, e.g. "door.opened"
type Type string

// Event is implemented by every value passed to Run
// EventType must return a constant and must not read the receiver,
// it is called on nil pointers to resolve the type of a registration
type Event interface {
	EventType() Type
}

// BaseEvent can be embedded into concrete events
type BaseEvent struct {
	occurredAt time.Time
}

// NewBaseEvent stamps the occurrence time
func NewBaseEvent() BaseEvent {
	return BaseEvent{occurredAt: time.Now()}
}

// OccurredAt returns the occurrence time
func (e BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}
