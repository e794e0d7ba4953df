package event

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KOMKZ/go-yogan-hooks/logger"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const tracerName = "github.com/KOMKZ/go-yogan-hooks/event"

// Dispatcher runs the priority-ordered handler chain of an event
type Dispatcher interface {
	// Register validates desc and adds it to the chain of its event type
	Register(ctx context.Context, desc Descriptor) (*Registration, error)

	// RegisterTable registers every row; failures are combined, successful rows stay registered
	RegisterTable(ctx context.Context, table []Descriptor) ([]*Registration, error)

	// RegisterSet registers set.Handlers() with set as the default owner
	RegisterSet(ctx context.Context, set HandlerSet) ([]*Registration, error)

	// Unregister removes (fn, owner) from every event type
	Unregister(fn any, owner any) bool

	Remove(reg *Registration) bool
	UnregisterOwner(owner any) int

	// Handlers ordered snapshot of the chain of t
	Handlers(t Type) []*Registration
	Types() []Type

	// Use registers an interceptor around the chain walk
	Use(interceptor Interceptor)

	// Delegates the built-in legacy delegate table
	Delegates() *DelegateTable

	// Run dispatches ev and returns it once the chain has completed or aborted
	Run(ctx context.Context, ev Event) Event

	// RunWithReport is Run plus a per-handler trace of the dispatch
	RunWithReport(ctx context.Context, ev Event) (Event, *Report)

	// Pending deferred handlers not yet finished
	Pending() int64

	// Close kills lingering handlers, stops the scheduler and releases the pool
	Close(ctx context.Context) error
}

type dispatcher struct {
	registry  *Registry
	scheduler *Scheduler
	pool      *ants.Pool
	bridge    *bridge
	delegates *DelegateTable
	sources   []DelegateSource
	overrides *OverrideRouter

	mu           sync.RWMutex
	interceptors []Interceptor

	poolSize       int
	defaultTimeout time.Duration
	tick           time.Duration
	forceWait      bool
	closeTimeout   time.Duration

	logger  *logger.CtxZapLogger
	metrics *HookMetrics
	tracer  trace.Tracer

	lingering sync.Map // *invocation -> Abandon
	closed    atomic.Bool
}

// NewDispatcher creates a dispatcher with a started scheduler
func NewDispatcher(opts ...DispatcherOption) (Dispatcher, error) {
	d := &dispatcher{
		poolSize:       100,
		defaultTimeout: DefaultTimeout,
		tick:           DefaultTickInterval,
		closeTimeout:   5 * time.Second,
		logger:         logger.GetLogger("yogan"),
		tracer:         otel.Tracer(tracerName),
		delegates:      NewDelegateTable(),
	}

	for _, opt := range opts {
		opt(d)
	}
	if d.defaultTimeout <= 0 {
		d.defaultTimeout = DefaultTimeout
	}

	pool, err := ants.NewPool(d.poolSize,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(r any) {
			d.logger.Error("hook pool worker panicked", zap.String("panic", fmt.Sprint(r)))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create hook pool: %w", err)
	}

	scheduler, err := NewScheduler(d.tick, d.logger)
	if err != nil {
		pool.Release()
		return nil, err
	}
	scheduler.Start()

	d.pool = pool
	d.scheduler = scheduler
	d.registry = NewRegistry(d.logger)
	d.bridge = newBridge(d.logger, append([]DelegateSource{d.delegates}, d.sources...)...)
	if d.metrics != nil {
		d.metrics.SetPendingCallback(scheduler.Pending)
	}
	return d, nil
}

// On registers fn for the event type of E with the kind inferred from its return shape
// fn may also be a Handler built with Sync, Deferred or Async
//
//	event.On[*DoorOpening](ctx, d, func(ev *DoorOpening) event.Decision[string] {
//	    return event.Deny("")
//	}, event.WithPriority(event.Highest))
func On[E Event](ctx context.Context, d Dispatcher, fn any, opts ...RegisterOption) (*Registration, error) {
	h, ok := fn.(Handler)
	if !ok {
		h = Infer(fn)
	}
	var proto E
	desc := Descriptor{Event: proto, Handler: h}
	for _, opt := range opts {
		opt(&desc)
	}
	return d.Register(ctx, desc)
}

// Raise dispatches ev and returns it with its static type
func Raise[E Event](ctx context.Context, d Dispatcher, ev E) E {
	d.Run(ctx, ev)
	return ev
}

func (d *dispatcher) Register(ctx context.Context, desc Descriptor) (*Registration, error) {
	if d.closed.Load() {
		return nil, ErrDispatcherClosed
	}

	if rule := d.overrideFor(desc); rule != nil {
		if !rule.apply(&desc) {
			name := descriptorName(desc)
			d.logger.InfoCtx(ctx, "handler disabled by override",
				zap.String("handler", name),
				zap.String("pattern", rule.Pattern))
			return nil, ErrHandlerDisabled.WithData("handler", name)
		}
	}

	reg, err := newRegistration(desc)
	if err != nil {
		d.logger.WarnCtx(ctx, "handler registration rejected", zap.Error(err))
		return nil, err
	}
	if err := d.registry.Register(ctx, reg); err != nil {
		return nil, err
	}

	d.logger.DebugCtx(ctx, "handler registered",
		zap.String("event", string(reg.eventType)),
		zap.String("handler", reg.name),
		zap.String("id", reg.id),
		zap.Stringer("priority", reg.priority),
		zap.Stringer("kind", reg.kind),
		zap.Stringer("binder", reg.binder.kind))
	return reg, nil
}

func (d *dispatcher) overrideFor(desc Descriptor) *Override {
	if d.overrides == nil || desc.Event == nil {
		return nil
	}
	t, ok := typeOf(desc.Event)
	if !ok {
		return nil
	}
	name := descriptorName(desc)
	if name == "" {
		return nil
	}
	return d.overrides.Match(name, t)
}

// descriptorName the name newRegistration will settle on, "" for non-functions and unnamed closures
func descriptorName(desc Descriptor) string {
	if desc.Name != "" {
		return desc.Name
	}
	fn := reflect.ValueOf(desc.Handler.fn)
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() || isClosure(fn) {
		return ""
	}
	return funcName(fn)
}

func (d *dispatcher) RegisterTable(ctx context.Context, table []Descriptor) ([]*Registration, error) {
	regs := make([]*Registration, 0, len(table))
	var errs error
	for i, desc := range table {
		reg, err := d.Register(ctx, desc)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		regs = append(regs, reg)
	}
	return regs, errs
}

func (d *dispatcher) RegisterSet(ctx context.Context, set HandlerSet) ([]*Registration, error) {
	table := set.Handlers()
	for i := range table {
		if table[i].Owner == nil {
			table[i].Owner = set
		}
	}
	return d.RegisterTable(ctx, table)
}

func (d *dispatcher) Unregister(fn any, owner any) bool {
	return d.registry.Unregister(fn, owner)
}

func (d *dispatcher) Remove(reg *Registration) bool {
	return d.registry.Remove(reg)
}

func (d *dispatcher) UnregisterOwner(owner any) int {
	return d.registry.UnregisterOwner(owner)
}

func (d *dispatcher) Handlers(t Type) []*Registration {
	return d.registry.Lookup(t)
}

func (d *dispatcher) Types() []Type {
	return d.registry.Types()
}

func (d *dispatcher) Use(interceptor Interceptor) {
	if interceptor == nil {
		return
	}
	d.mu.Lock()
	d.interceptors = append(d.interceptors, interceptor)
	d.mu.Unlock()
}

func (d *dispatcher) Delegates() *DelegateTable {
	return d.delegates
}

func (d *dispatcher) Pending() int64 {
	return d.scheduler.Pending()
}

func (d *dispatcher) Run(ctx context.Context, ev Event) Event {
	ev, _ = d.RunWithReport(ctx, ev)
	return ev
}

func (d *dispatcher) RunWithReport(ctx context.Context, ev Event) (Event, *Report) {
	start := time.Now()
	report := &Report{State: StateIdle}

	if ev == nil || isNilPointer(ev) {
		report.Err = ErrUnknownEventType.WithMsgf("nil event")
		return ev, report
	}
	t, ok := typeOf(ev)
	if !ok {
		report.Err = ErrUnknownEventType.WithData("go_type", reflect.TypeOf(ev).String())
		return ev, report
	}
	report.EventType = t
	if d.closed.Load() {
		report.Err = ErrDispatcherClosed
		return ev, report
	}

	ctx, span := d.tracer.Start(ctx, "hook.dispatch", trace.WithAttributes(attribute.String("hook.event", string(t))))
	defer span.End()

	regs := d.registry.Lookup(t)

	d.mu.RLock()
	interceptors := make([]Interceptor, len(d.interceptors))
	copy(interceptors, d.interceptors)
	d.mu.RUnlock()

	walked := false
	walk := func(ctx context.Context, ev Event) error {
		walked = true
		d.walk(ctx, ev, regs, report)
		return nil
	}

	report.State = StateRunning
	if err := buildChain(interceptors, walk)(ctx, ev); err != nil {
		report.Err = err
		d.logger.WarnCtx(ctx, "interceptor returned an error",
			zap.String("event", string(t)),
			zap.Error(err))
	}
	if !walked {
		report.Skipped = names(regs)
		report.State = StateCompleted
		if report.Err != nil {
			report.State = StateAborted
		}
	}

	report.Delegates, report.DelegateErr = d.bridge.invoke(ctx, ev)
	if report.DelegateErr != nil {
		d.metrics.RecordDelegateFailures(ctx, t, len(multierr.Errors(report.DelegateErr)))
	}

	report.Duration = time.Since(start)
	d.metrics.RecordDispatch(ctx, t, report.State, report.Duration)
	span.SetAttributes(
		attribute.String("hook.state", report.State.String()),
		attribute.Int("hook.handlers", len(report.Results)),
	)
	if report.State == StateAborted {
		span.SetStatus(codes.Error, "dispatch aborted")
	}

	d.logger.DebugCtx(ctx, "dispatch finished",
		zap.String("event", string(t)),
		zap.Stringer("state", report.State),
		zap.Int("handlers", len(report.Results)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("delegates", report.Delegates),
		zap.Duration("duration", report.Duration))
	return ev, report
}

// walk invokes regs in order until one aborts the chain
func (d *dispatcher) walk(ctx context.Context, ev Event, regs []*Registration, report *Report) {
	var slot Slot
	if c, ok := ev.(Cancellable); ok && len(regs) > 0 {
		slot = c.CancellationSlot()
		slot.prepare()
	}

	for i, reg := range regs {
		if err := ctx.Err(); err != nil {
			d.logger.WarnCtx(ctx, "dispatch cancelled by caller",
				zap.String("event", string(report.EventType)),
				zap.String("next_handler", reg.name),
				zap.Error(err))
			report.State = StateAborted
			report.Skipped = names(regs[i:])
			return
		}
		if reg.once && !reg.fired.CompareAndSwap(false, true) {
			continue
		}

		res, abort := d.invokeOne(ctx, ev, reg, slot)
		report.Results = append(report.Results, res)
		if reg.once {
			d.registry.Remove(reg)
		}
		if abort {
			report.State = StateAborted
			report.Skipped = names(regs[i+1:])
			return
		}
	}
	report.State = StateCompleted
}

const (
	invocationPending int32 = iota
	invocationDelivered
	invocationSettled // the chain stopped waiting, a completion is handled as late
)

// invocation one handler call; state arbitrates between the completion and the waiter
type invocation struct {
	reg      *Registration
	ctx      context.Context
	span     trace.Span
	cancel   context.CancelFunc
	state    atomic.Int32
	finished atomic.Bool
	done     chan Outcome
}

func (d *dispatcher) invokeOne(ctx context.Context, ev Event, reg *Registration, slot Slot) (HandlerResult, bool) {
	start := time.Now()
	res := HandlerResult{
		Handler:        reg.name,
		RegistrationID: reg.id,
		Priority:       reg.priority,
		Kind:           reg.kind,
	}
	wait := !reg.sync.DoNotWait || d.forceWait
	res.Waited = wait

	parent := ctx
	if !wait {
		parent = context.WithoutCancel(ctx)
	}
	hctx, span := d.tracer.Start(parent, "hook.handler", trace.WithAttributes(
		attribute.String("hook.event", string(reg.eventType)),
		attribute.String("hook.handler", reg.name),
		attribute.String("hook.kind", reg.kind.String()),
	))
	hctx, cancel := context.WithCancel(hctx)

	inv := &invocation{reg: reg, ctx: hctx, span: span, cancel: cancel, done: make(chan Outcome, 1)}
	onComplete := func(o Outcome) {
		if inv.state.CompareAndSwap(invocationPending, invocationDelivered) {
			inv.done <- o
			return
		}
		d.late(inv, o)
	}

	abandon := d.executor(reg.kind).Execute(hctx, ev, reg, onComplete)

	if !wait {
		if inv.state.CompareAndSwap(invocationPending, invocationSettled) {
			d.linger(inv, abandon)
			return res, false
		}
		// finished in-line (sync handlers always do), merged like a waited result
		res.Outcome = <-inv.done
		res.Merged = d.settle(ctx, inv, res.Outcome, slot)
		return res, false
	}

	timeout := reg.sync.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var cause error
	select {
	case o := <-inv.done:
		res.Outcome = o
		res.Merged = d.settle(ctx, inv, o, slot)
		return res, false
	case <-timer.C:
	case <-ctx.Done():
		cause = ctx.Err()
	}

	if !inv.state.CompareAndSwap(invocationPending, invocationSettled) {
		// completed while the timer fired
		o := <-inv.done
		res.Outcome = o
		res.Merged = d.settle(ctx, inv, o, slot)
		return res, false
	}

	timeoutErr := ErrHandlerTimeout.
		WithData("handler", reg.name).
		WithData("event", string(reg.eventType))
	if cause != nil {
		timeoutErr = timeoutErr.Wrap(cause)
	}
	res.Outcome = Outcome{Status: StatusTimedOut, Err: timeoutErr, Duration: time.Since(start)}
	d.metrics.RecordTimeout(ctx, reg.eventType, reg.name)

	if reg.sync.DoNotKill && cause == nil {
		d.logger.WarnCtx(ctx, "handler timed out, left running",
			zap.String("event", string(reg.eventType)),
			zap.String("handler", reg.name),
			zap.Duration("timeout", timeout))
		d.linger(inv, abandon)
		return res, false
	}

	d.logger.WarnCtx(ctx, "handler timed out, chain aborted",
		zap.String("event", string(reg.eventType)),
		zap.String("handler", reg.name),
		zap.Duration("timeout", timeout),
		zap.Bool("caller_cancelled", cause != nil))
	abandon()
	cancel()
	res.Killed = true
	return res, true
}

func (d *dispatcher) executor(kind Kind) Executor {
	switch kind {
	case KindDeferred:
		return deferredExecutor{scheduler: d.scheduler}
	case KindAsync:
		return asyncExecutor{pool: d.pool}
	default:
		return syncExecutor{}
	}
}

// settle merges a waited Success outcome into the slot and reports whether it was merged
func (d *dispatcher) settle(ctx context.Context, inv *invocation, o Outcome, slot Slot) bool {
	merged := false
	if o.Status == StatusSuccess && slot != nil && o.Value != nil {
		m := slot.merge(o.Value, inv.reg.name)
		merged = m.accepted
		if m.overturned {
			d.logger.DebugCtx(ctx, "decision overturned",
				zap.String("event", string(inv.reg.eventType)),
				zap.String("handler", inv.reg.name),
				zap.String("previous", m.previous),
				zap.Bool("cancelled", slot.Cancelled()))
		}
	}
	d.record(ctx, inv, o)
	return merged
}

// record logs o and closes the invocation
func (d *dispatcher) record(ctx context.Context, inv *invocation, o Outcome) {
	reg := inv.reg
	switch o.Status {
	case StatusError:
		d.logger.ErrorCtx(ctx, "handler failed",
			zap.String("event", string(reg.eventType)),
			zap.String("handler", reg.name),
			zap.Stringer("kind", reg.kind),
			zap.Error(o.Err))
	case StatusTimedOut:
		d.logger.WarnCtx(ctx, "handler stopped before completing",
			zap.String("event", string(reg.eventType)),
			zap.String("handler", reg.name),
			zap.Error(o.Err))
	}
	d.logger.DebugCtx(ctx, "handler completed",
		zap.String("event", string(reg.eventType)),
		zap.String("handler", reg.name),
		zap.Stringer("status", o.Status),
		zap.Duration("duration", o.Duration))
	d.metrics.RecordHandler(ctx, reg.eventType, reg.name, reg.kind, o)
	inv.end(o)
}

// late handles a completion arriving after the chain stopped waiting; it is never merged
func (d *dispatcher) late(inv *invocation, o Outcome) {
	inv.finished.Store(true)
	d.lingering.Delete(inv)
	d.logger.DebugCtx(inv.ctx, "late handler completion ignored",
		zap.String("event", string(inv.reg.eventType)),
		zap.String("handler", inv.reg.name),
		zap.Stringer("status", o.Status))
	d.metrics.RecordHandler(inv.ctx, inv.reg.eventType, inv.reg.name, inv.reg.kind, o)
	inv.end(o)
}

// linger keeps abandon until the handler completes so Close can kill it
func (d *dispatcher) linger(inv *invocation, abandon Abandon) {
	d.lingering.Store(inv, abandon)
	if inv.finished.Load() {
		d.lingering.Delete(inv)
	}
}

func (inv *invocation) end(o Outcome) {
	inv.span.SetAttributes(attribute.String("hook.status", o.Status.String()))
	if o.Err != nil {
		inv.span.RecordError(o.Err)
		inv.span.SetStatus(codes.Error, o.Err.Error())
	}
	inv.span.End()
	inv.cancel()
}

func (d *dispatcher) Close(ctx context.Context) error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	killed := 0
	d.lingering.Range(func(key, value any) bool {
		value.(Abandon)()
		d.lingering.Delete(key)
		killed++
		return true
	})

	err := d.scheduler.Stop()
	if perr := d.pool.ReleaseTimeout(d.closeTimeout); perr != nil {
		err = multierr.Append(err, fmt.Errorf("release hook pool: %w", perr))
	}

	d.logger.InfoCtx(ctx, "hook dispatcher closed", zap.Int("killed", killed))
	return err
}

func names(regs []*Registration) []string {
	if len(regs) == 0 {
		return nil
	}
	out := make([]string, 0, len(regs))
	for _, reg := range regs {
		out = append(out, reg.name)
	}
	return out
}

func isNilPointer(ev Event) bool {
	v := reflect.ValueOf(ev)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
