package event

import (
	"reflect"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout wait ceiling for a handler when SyncOptions.Timeout is zero
const DefaultTimeout = 2000 * time.Millisecond

// SyncOptions controls how long Run waits for one handler
type SyncOptions struct {
	DoNotWait bool          // do not block on a suspended handler; a result ready in-line is still merged
	DoNotKill bool          // on timeout keep the handler running and continue the chain
	Timeout   time.Duration // zero means the dispatcher default
}

// Descriptor is one row of a registration table
//
//	var guardHooks = []event.Descriptor{
//	    {Event: (*DoorOpening)(nil), Handler: event.Sync(denyLocked), Priority: event.Highest},
//	    {Event: (*DoorOpening)(nil), Handler: event.Deferred(slowAudit), Sync: event.SyncOptions{DoNotKill: true}},
//	}
type Descriptor struct {
	Event    Event // prototype, a typed nil pointer is enough
	Handler  Handler
	Name     string   // identity within (event type, owner); defaults to the function name
	Owner    any      // instance the callable belongs to, part of its identity
	Priority Priority // zero value is Normal
	Params   []string // event field names for field projection, in parameter order
	Sync     SyncOptions
	Once     bool
}

// RegisterOption adjusts a descriptor built by On
type RegisterOption func(*Descriptor)

// WithName sets the handler name used in logs, reports and overrides
func WithName(name string) RegisterOption {
	return func(d *Descriptor) { d.Name = name }
}

// WithOwner ties the callable to an instance (method values share one code pointer)
func WithOwner(owner any) RegisterOption {
	return func(d *Descriptor) { d.Owner = owner }
}

// WithPriority sets the priority tier
func WithPriority(p Priority) RegisterOption {
	return func(d *Descriptor) { d.Priority = p }
}

// WithParams names the event fields projected onto the handler parameters
func WithParams(names ...string) RegisterOption {
	return func(d *Descriptor) { d.Params = names }
}

// WithTimeout sets the wait ceiling
func WithTimeout(timeout time.Duration) RegisterOption {
	return func(d *Descriptor) { d.Sync.Timeout = timeout }
}

// WithSyncOptions replaces all sync options
func WithSyncOptions(opts SyncOptions) RegisterOption {
	return func(d *Descriptor) { d.Sync = opts }
}

// DoNotWait the chain continues without waiting for the handler
func DoNotWait() RegisterOption {
	return func(d *Descriptor) { d.Sync.DoNotWait = true }
}

// DoNotKill a timed-out handler keeps running and the chain continues
func DoNotKill() RegisterOption {
	return func(d *Descriptor) { d.Sync.DoNotKill = true }
}

// Once removes the registration after its first invocation
func Once() RegisterOption {
	return func(d *Descriptor) { d.Once = true }
}

// HandlerSet is implemented by types that publish their own registration table
// RegisterSet uses the set as owner for rows that do not name one
type HandlerSet interface {
	Handlers() []Descriptor
}

// handlerKey identity of a callable within one event type
// An explicit name is the identity; otherwise the code pointer of a named function or method value
type handlerKey struct {
	name  string
	fn    uintptr
	owner any
}

// Registration is an accepted handler; it is immutable once registered
type Registration struct {
	id        string
	name      string
	eventType Type
	goType    reflect.Type
	fn        reflect.Value
	code      uintptr
	key       handlerKey
	kind      Kind
	shape     returnShape
	binder    *binder
	sync      SyncOptions
	once      bool
	priority  Priority
	requested Priority
	seq       uint64

	fired atomic.Bool // claimed by the first dispatch of a Once registration
}

// newRegistration resolves binder and executor, nothing is registered yet
func newRegistration(desc Descriptor) (*Registration, error) {
	if desc.Event == nil {
		return nil, ErrUnknownEventType.WithMsgf("descriptor has no event prototype")
	}
	eventType, ok := typeOf(desc.Event)
	if !ok {
		return nil, ErrUnknownEventType.WithData("go_type", reflect.TypeOf(desc.Event).String())
	}

	fn := reflect.ValueOf(desc.Handler.fn)
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, ErrInvalidHandler.WithData("event", string(eventType))
	}
	if desc.Owner != nil && !reflect.TypeOf(desc.Owner).Comparable() {
		return nil, ErrOwnerNotComparable.WithData("owner", reflect.TypeOf(desc.Owner).String())
	}
	if !desc.Priority.Valid() {
		return nil, ErrInvalidHandler.WithMsgf("invalid priority %d", int(desc.Priority))
	}

	key := handlerKey{name: desc.Name, owner: desc.Owner}
	name := desc.Name
	if name == "" {
		// closure code pointers and names follow inlining, only a given name identifies them
		if isClosure(fn) {
			return nil, ErrInvalidHandler.
				WithMsgf("anonymous function handler needs a name").
				WithData("event", string(eventType)).
				WithData("func", funcName(fn))
		}
		name = funcName(fn)
		key.fn = fn.Pointer()
	}

	shape, ok := classify(fn.Type())
	if !ok {
		return nil, ErrUnresolvableExecutor.WithData("handler", name).WithData("signature", fn.Type().String())
	}
	kind, ok := resolveKind(desc.Handler.kind, shape)
	if !ok {
		return nil, ErrUnresolvableExecutor.
			WithData("handler", name).
			WithData("kind", desc.Handler.kind.String()).
			WithData("signature", fn.Type().String())
	}

	goType := reflect.TypeOf(desc.Event)
	b, err := resolveBinder(fn.Type(), goType, desc.Params)
	if err != nil {
		return nil, err.WithData("handler", name)
	}

	return &Registration{
		id:        uuid.NewString(),
		name:      name,
		eventType: eventType,
		goType:    goType,
		fn:        fn,
		code:      fn.Pointer(),
		key:       key,
		kind:      kind,
		shape:     shape,
		binder:    b,
		sync:      desc.Sync,
		once:      desc.Once,
		priority:  desc.Priority,
		requested: desc.Priority,
	}, nil
}

// typeOf calls EventType on a prototype that may be a nil pointer
func typeOf(ev Event) (t Type, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = "", false
		}
	}()
	t = ev.EventType()
	return t, t != ""
}

// ID unique registration id
func (r *Registration) ID() string { return r.id }

// Name handler name
func (r *Registration) Name() string { return r.name }

// EventType event type the handler is bound to
func (r *Registration) EventType() Type { return r.eventType }

// Owner owning instance, nil for plain functions
func (r *Registration) Owner() any { return r.key.owner }

// Kind resolved execution kind
func (r *Registration) Kind() Kind { return r.kind }

// Binder resolved parameter binding
func (r *Registration) Binder() BinderKind { return r.binder.kind }

// Priority effective priority, after any demotion
func (r *Registration) Priority() Priority { return r.priority }

// Demoted reports whether an exclusive tier was already taken
func (r *Registration) Demoted() bool { return r.priority != r.requested }

// SyncOptions wait behaviour
func (r *Registration) SyncOptions() SyncOptions { return r.sync }

// Once reports whether the registration is removed after its first invocation
func (r *Registration) Once() bool { return r.once }
