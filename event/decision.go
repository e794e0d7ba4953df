package event

import (
	"fmt"
	"sync"
)

// Verdict is the allow/deny half of a Decision
type Verdict int8

const (
	VerdictAllow Verdict = iota
	VerdictDeny
)

func (v Verdict) String() string {
	if v == VerdictDeny {
		return "deny"
	}
	return "allow"
}

// Decision is the value a handler returns to vote on a cancellable event
// A zero Value is the plain Allowed/Cancelled sentinel, anything else is a custom override
type Decision[T comparable] struct {
	Verdict Verdict
	Value   T
}

// Allow lets the event proceed
func Allow[T comparable](v T) Decision[T] {
	return Decision[T]{Verdict: VerdictAllow, Value: v}
}

// Deny cancels the event
func Deny[T comparable](v T) Decision[T] {
	return Decision[T]{Verdict: VerdictDeny, Value: v}
}

// Denied reports whether the decision cancels the event
func (d Decision[T]) Denied() bool {
	return d.Verdict == VerdictDeny
}

// IsOverride reports whether the decision carries a custom value
func (d Decision[T]) IsOverride() bool {
	var zero T
	return d.Value != zero
}

func (d Decision[T]) String() string {
	if !d.IsOverride() {
		if d.Denied() {
			return "cancelled"
		}
		return "allowed"
	}
	return fmt.Sprintf("%s(%v)", d.Verdict, d.Value)
}

// DecisionRecord one accepted vote, in dispatch order
type DecisionRecord struct {
	Handler  string
	Verdict  Verdict
	Value    any
	Override bool
}

// Cancellable events expose their decision slot to the dispatcher
type Cancellable interface {
	Event
	CancellationSlot() Slot
}

// Slot is the dispatcher-facing side of Cancellation
type Slot interface {
	Cancelled() bool
	DecidedBy() string
	History() []DecisionRecord

	prepare()
	merge(value any, handler string) mergeResult
}

type mergeResult struct {
	accepted   bool
	overturned bool   // verdict flipped against an earlier handler
	previous   string // handler whose verdict was overturned
}

// Cancellation is embedded by pointer-receiver events to make them cancellable
//
//	type DoorOpening struct {
//	    event.Cancellation[string]
//	    Door string
//	}
type Cancellation[T comparable] struct {
	mu        sync.RWMutex
	decision  Decision[T]
	decidedBy string
	seeded    bool
	history   []DecisionRecord
}

// CancellationSlot implements Cancellable
func (c *Cancellation[T]) CancellationSlot() Slot {
	return c
}

// Seed pre-sets the decision for the next dispatch instead of the default Allowed
func (c *Cancellation[T]) Seed(d Decision[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decision = d
	c.decidedBy = ""
	c.seeded = true
	c.history = nil
}

// Decision returns the current decision
func (c *Cancellation[T]) Decision() Decision[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decision
}

// Cancelled reports whether the current decision denies the event
func (c *Cancellation[T]) Cancelled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decision.Denied()
}

// Override returns the custom value, if any
func (c *Cancellation[T]) Override() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decision.Value, c.decision.IsOverride()
}

// DecidedBy names the handler that set the current decision, "" when nobody voted
func (c *Cancellation[T]) DecidedBy() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decidedBy
}

// History returns every accepted vote of the last dispatch
func (c *Cancellation[T]) History() []DecisionRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]DecisionRecord, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Cancellation[T]) prepare() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	if c.seeded {
		c.seeded = false
		return
	}
	c.decision = Allow(*new(T))
	c.decidedBy = ""
}

// merge accepts Decision[T] values only, last write wins
func (c *Cancellation[T]) merge(value any, handler string) mergeResult {
	d, ok := value.(Decision[T])
	if !ok {
		return mergeResult{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	res := mergeResult{accepted: true}
	if c.decidedBy != "" && c.decision.Verdict != d.Verdict {
		res.overturned = true
		res.previous = c.decidedBy
	}

	c.decision = d
	c.decidedBy = handler
	c.history = append(c.history, DecisionRecord{
		Handler:  handler,
		Verdict:  d.Verdict,
		Value:    d.Value,
		Override: d.IsOverride(),
	})
	return res
}
