package event

import (
	"context"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-hooks/component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var _ component.MetricsProvider = (*HookMetrics)(nil)

// HookMetrics implements component.MetricsProvider for the hook engine
type HookMetrics struct {
	enabled    bool
	registered bool
	mu         sync.RWMutex

	dispatched       metric.Int64Counter
	handled          metric.Int64Counter
	timeouts         metric.Int64Counter
	aborts           metric.Int64Counter
	delegateFailures metric.Int64Counter
	dispatchDuration metric.Float64Histogram
	handlerDuration  metric.Float64Histogram
	pending          metric.Int64ObservableGauge

	pendingCallback func() int64
}

// NewHookMetrics creates an unregistered provider
func NewHookMetrics(enabled bool) *HookMetrics {
	return &HookMetrics{enabled: enabled}
}

// MetricsName returns the metrics group name
func (m *HookMetrics) MetricsName() string {
	return "hook"
}

// IsMetricsEnabled returns whether metrics collection is enabled
func (m *HookMetrics) IsMetricsEnabled() bool {
	return m.enabled
}

// RegisterMetrics creates every instrument on meter
func (m *HookMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	var err error
	if m.dispatched, err = meter.Int64Counter(
		"hook_dispatched_total",
		metric.WithDescription("Total number of dispatches"),
		metric.WithUnit("{dispatch}"),
	); err != nil {
		return err
	}

	if m.handled, err = meter.Int64Counter(
		"hook_handler_outcomes_total",
		metric.WithDescription("Handler invocations by outcome status"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return err
	}

	if m.timeouts, err = meter.Int64Counter(
		"hook_handler_timeouts_total",
		metric.WithDescription("Handlers that exceeded their wait ceiling"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return err
	}

	if m.aborts, err = meter.Int64Counter(
		"hook_dispatch_aborted_total",
		metric.WithDescription("Dispatches whose chain was aborted"),
		metric.WithUnit("{dispatch}"),
	); err != nil {
		return err
	}

	if m.delegateFailures, err = meter.Int64Counter(
		"hook_delegate_failures_total",
		metric.WithDescription("Legacy delegate failures"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return err
	}

	if m.dispatchDuration, err = meter.Float64Histogram(
		"hook_dispatch_duration_seconds",
		metric.WithDescription("Dispatch duration distribution"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if m.handlerDuration, err = meter.Float64Histogram(
		"hook_handler_duration_seconds",
		metric.WithDescription("Handler duration distribution"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if m.pending, err = meter.Int64ObservableGauge(
		"hook_pending_coroutines",
		metric.WithDescription("Deferred handlers waiting for the scheduler"),
		metric.WithUnit("{coroutine}"),
		metric.WithInt64Callback(m.collectPending),
	); err != nil {
		return err
	}

	m.registered = true
	return nil
}

func (m *HookMetrics) collectPending(_ context.Context, observer metric.Int64Observer) error {
	m.mu.RLock()
	cb := m.pendingCallback
	m.mu.RUnlock()
	if cb != nil {
		observer.Observe(cb())
	}
	return nil
}

// SetPendingCallback sets the source of the pending coroutine gauge
func (m *HookMetrics) SetPendingCallback(cb func() int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingCallback = cb
}

// IsRegistered returns whether instruments exist
func (m *HookMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

func (m *HookMetrics) active() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

// RecordDispatch records one finished dispatch
func (m *HookMetrics) RecordDispatch(ctx context.Context, t Type, state State, duration time.Duration) {
	if !m.active() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("event", string(t)),
		attribute.String("state", state.String()),
	)
	m.dispatched.Add(ctx, 1, attrs)
	m.dispatchDuration.Record(ctx, duration.Seconds(), attrs)
	if state == StateAborted {
		m.aborts.Add(ctx, 1, metric.WithAttributes(attribute.String("event", string(t))))
	}
}

// RecordHandler records one handler outcome
func (m *HookMetrics) RecordHandler(ctx context.Context, t Type, handler string, kind Kind, o Outcome) {
	if !m.active() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("event", string(t)),
		attribute.String("handler", handler),
		attribute.String("kind", kind.String()),
		attribute.String("status", o.Status.String()),
	)
	m.handled.Add(ctx, 1, attrs)
	m.handlerDuration.Record(ctx, o.Duration.Seconds(), attrs)
}

// RecordTimeout records a handler exceeding its wait ceiling
func (m *HookMetrics) RecordTimeout(ctx context.Context, t Type, handler string) {
	if !m.active() {
		return
	}
	m.timeouts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", string(t)),
		attribute.String("handler", handler),
	))
}

// RecordDelegateFailures records failed legacy delegates
func (m *HookMetrics) RecordDelegateFailures(ctx context.Context, t Type, n int) {
	if !m.active() || n == 0 {
		return
	}
	m.delegateFailures.Add(ctx, int64(n), metric.WithAttributes(attribute.String("event", string(t))))
}
