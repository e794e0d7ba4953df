package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/KOMKZ/go-yogan-hooks/logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Delegate is a plain subscriber invoked after the handler chain
// It sees the final event value; its result never changes the chain or the decision
type Delegate func(ctx context.Context, ev Event) error

// NamedDelegate a delegate with the name used in logs
type NamedDelegate struct {
	Name string
	Fn   Delegate
}

// DelegateSource supplies the delegates of an event type
type DelegateSource interface {
	Delegates(t Type) []NamedDelegate
}

// DelegateTable "event += handler" style subscriptions
type DelegateTable struct {
	mu        sync.RWMutex
	delegates map[Type][]NamedDelegate
	watchers  []func(Type)
}

// NewDelegateTable creates an empty table
func NewDelegateTable() *DelegateTable {
	return &DelegateTable{delegates: make(map[Type][]NamedDelegate)}
}

// On appends a delegate; names are not required to be unique
func (t *DelegateTable) On(et Type, name string, fn Delegate) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.delegates[et] = append(t.delegates[et], NamedDelegate{Name: name, Fn: fn})
	watchers := t.watchers
	t.mu.Unlock()
	t.notify(watchers, et)
}

// Off removes every delegate registered under name
func (t *DelegateTable) Off(et Type, name string) bool {
	t.mu.Lock()
	list := t.delegates[et]
	kept := make([]NamedDelegate, 0, len(list))
	for _, d := range list {
		if d.Name != name {
			kept = append(kept, d)
		}
	}
	removed := len(kept) != len(list)
	if removed {
		t.delegates[et] = kept
	}
	watchers := t.watchers
	t.mu.Unlock()

	if removed {
		t.notify(watchers, et)
	}
	return removed
}

// Delegates implements DelegateSource
func (t *DelegateTable) Delegates(et Type) []NamedDelegate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]NamedDelegate, len(t.delegates[et]))
	copy(out, t.delegates[et])
	return out
}

func (t *DelegateTable) watch(fn func(Type)) {
	t.mu.Lock()
	t.watchers = append(t.watchers, fn)
	t.mu.Unlock()
}

func (t *DelegateTable) notify(watchers []func(Type), et Type) {
	for _, w := range watchers {
		w(et)
	}
}

// FromDelegate adapts a delegate into a synchronous whole-event handler
func FromDelegate(fn Delegate) Handler {
	return Sync(fn)
}

// bridge caches delegate lookups per event type and invokes them after the chain
type bridge struct {
	sources []DelegateSource
	group   singleflight.Group
	logger  *logger.CtxZapLogger

	mu    sync.RWMutex // guards cache and gen together
	cache map[Type][]NamedDelegate
	gen   uint64
}

func newBridge(log *logger.CtxZapLogger, sources ...DelegateSource) *bridge {
	b := &bridge{sources: sources, logger: log, cache: make(map[Type][]NamedDelegate)}
	for _, src := range sources {
		if tbl, ok := src.(*DelegateTable); ok {
			tbl.watch(b.invalidate)
		}
	}
	return b
}

// lookup resolves the delegates of t once, concurrent first lookups share one call
func (b *bridge) lookup(t Type) []NamedDelegate {
	b.mu.RLock()
	cached, ok := b.cache[t]
	gen := b.gen
	b.mu.RUnlock()
	if ok {
		return cached
	}
	v, _, _ := b.group.Do(string(t), func() (any, error) {
		var all []NamedDelegate
		for _, src := range b.sources {
			all = append(all, src.Delegates(t)...)
		}
		// a table changed since gen was read, serve this result without caching it
		b.mu.Lock()
		if b.gen == gen {
			b.cache[t] = all
		}
		b.mu.Unlock()
		return all, nil
	})
	return v.([]NamedDelegate)
}

func (b *bridge) invalidate(t Type) {
	b.mu.Lock()
	b.gen++
	delete(b.cache, t)
	b.mu.Unlock()
}

// invoke runs every delegate in order; failures are logged and combined, never returned to Run
func (b *bridge) invoke(ctx context.Context, ev Event) (int, error) {
	delegates := b.lookup(ev.EventType())
	var errs error
	for _, d := range delegates {
		if err := b.call(ctx, ev, d); err != nil {
			wrapped := ErrDelegateFailed.
				WithData("delegate", d.Name).
				WithData("event", string(ev.EventType())).
				Wrap(err)
			b.logger.WarnCtx(ctx, "legacy delegate failed",
				zap.String("event", string(ev.EventType())),
				zap.String("delegate", d.Name),
				zap.Error(err))
			errs = multierr.Append(errs, wrapped)
		}
	}
	return len(delegates), errs
}

func (b *bridge) call(ctx context.Context, ev Event, d NamedDelegate) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrHandlerPanic.WithData("panic", fmt.Sprint(r))
		}
	}()
	return d.Fn(ctx, ev)
}
