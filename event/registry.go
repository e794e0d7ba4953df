package event

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/KOMKZ/go-yogan-hooks/logger"
	"go.uber.org/zap"
)

// chain ordered registrations of one event type, guarded by its own lock
type chain struct {
	mu   sync.RWMutex
	regs []*Registration
}

// Registry owns the handler chains of every event type
type Registry struct {
	mu     sync.RWMutex // guards the chains map only
	chains map[Type]*chain
	seq    atomic.Uint64
	logger *logger.CtxZapLogger
}

// NewRegistry creates an empty registry
func NewRegistry(log *logger.CtxZapLogger) *Registry {
	if log == nil {
		log = logger.GetLogger("yogan")
	}
	return &Registry{
		chains: make(map[Type]*chain),
		logger: log,
	}
}

func (r *Registry) chainFor(t Type, create bool) *chain {
	r.mu.RLock()
	c, ok := r.chains[t]
	r.mu.RUnlock()
	if ok || !create {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.chains[t]; !ok {
		c = &chain{}
		r.chains[t] = c
	}
	return c
}

func (r *Registry) allChains() []*chain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*chain, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	return out
}

// Register inserts reg keeping the chain ordered by (priority, registration order)
// A second (callable, owner) pair is rejected with ErrDuplicateHandler; a second claim
// on AlwaysFirst/AlwaysLast is demoted to Highest/Lowest and still registered
func (r *Registry) Register(ctx context.Context, reg *Registration) error {
	c := r.chainFor(reg.eventType, true)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.regs {
		if existing.key == reg.key {
			r.logger.WarnCtx(ctx, "duplicate handler registration rejected",
				zap.String("event", string(reg.eventType)),
				zap.String("handler", reg.name),
				zap.String("existing_id", existing.id))
			return ErrDuplicateHandler.
				WithData("event", string(reg.eventType)).
				WithData("handler", reg.name)
		}
	}

	if lower, exclusive := reg.priority.demoted(); exclusive {
		for _, existing := range c.regs {
			if existing.priority == reg.priority {
				r.logger.WarnCtx(ctx, "exclusive priority already claimed, handler demoted",
					zap.String("event", string(reg.eventType)),
					zap.String("handler", reg.name),
					zap.String("claimed_by", existing.name),
					zap.Stringer("requested", reg.priority),
					zap.Stringer("priority", lower))
				reg.priority = lower
				break
			}
		}
	}

	reg.seq = r.seq.Add(1)
	c.regs = append(c.regs, reg)
	c.sort()
	return nil
}

func (c *chain) sort() {
	sort.SliceStable(c.regs, func(i, j int) bool {
		if c.regs[i].priority != c.regs[j].priority {
			return c.regs[i].priority < c.regs[j].priority
		}
		return c.regs[i].seq < c.regs[j].seq
	})
}

// removeWhere drops matching registrations and returns how many went
func (c *chain) removeWhere(match func(*Registration) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]*Registration, 0, len(c.regs))
	for _, reg := range c.regs {
		if !match(reg) {
			kept = append(kept, reg)
		}
	}
	removed := len(c.regs) - len(kept)
	if removed > 0 {
		c.regs = kept
		c.sort()
	}
	return removed
}

// Unregister removes every registration of (fn, owner) across all event types
// fn is the function value used at registration; reports whether anything was removed.
// Named closures built from one literal share their code, use Remove to drop only one of them
func (r *Registry) Unregister(fn any, owner any) bool {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return false
	}
	if owner != nil && !reflect.TypeOf(owner).Comparable() {
		return false
	}

	code := v.Pointer()
	removed := 0
	for _, c := range r.allChains() {
		removed += c.removeWhere(func(reg *Registration) bool {
			return reg.code == code && reg.key.owner == owner
		})
	}
	return removed > 0
}

// Remove drops one registration
func (r *Registry) Remove(reg *Registration) bool {
	if reg == nil {
		return false
	}
	c := r.chainFor(reg.eventType, false)
	if c == nil {
		return false
	}
	return c.removeWhere(func(x *Registration) bool { return x == reg }) > 0
}

// UnregisterOwner drops every registration owned by owner (teardown)
func (r *Registry) UnregisterOwner(owner any) int {
	if owner == nil || !reflect.TypeOf(owner).Comparable() {
		return 0
	}
	removed := 0
	for _, c := range r.allChains() {
		removed += c.removeWhere(func(reg *Registration) bool { return reg.key.owner == owner })
	}
	return removed
}

// Lookup returns a copy of the ordered chain; later mutations do not affect it
func (r *Registry) Lookup(t Type) []*Registration {
	c := r.chainFor(t, false)
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Registration, len(c.regs))
	copy(out, c.regs)
	return out
}

// Count number of registrations for t
func (r *Registry) Count(t Type) int {
	c := r.chainFor(t, false)
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.regs)
}

// Types event types with at least one registration, sorted
func (r *Registry) Types() []Type {
	r.mu.RLock()
	candidates := make([]Type, 0, len(r.chains))
	for t := range r.chains {
		candidates = append(candidates, t)
	}
	r.mu.RUnlock()

	out := candidates[:0]
	for _, t := range candidates {
		if r.Count(t) > 0 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
