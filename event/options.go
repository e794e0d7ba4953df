package event

import (
	"time"

	"github.com/KOMKZ/go-yogan-hooks/logger"
	"go.opentelemetry.io/otel/trace"
)

// DispatcherOption Dispatcher configuration options
type DispatcherOption func(*dispatcher)

// WithLogger replaces the "yogan" module logger
func WithLogger(log *logger.CtxZapLogger) DispatcherOption {
	return func(d *dispatcher) {
		if log != nil {
			d.logger = log
		}
	}
}

// WithPoolSize sets the size of the pool that waits on async handlers
func WithPoolSize(size int) DispatcherOption {
	return func(d *dispatcher) {
		d.poolSize = size
	}
}

// WithDefaultTimeout wait ceiling for handlers registered without a timeout
func WithDefaultTimeout(timeout time.Duration) DispatcherOption {
	return func(d *dispatcher) {
		d.defaultTimeout = timeout
	}
}

// WithTickInterval how often deferred handlers are advanced
func WithTickInterval(tick time.Duration) DispatcherOption {
	return func(d *dispatcher) {
		d.tick = tick
	}
}

// WithForceWait ignores DoNotWait on every handler
func WithForceWait(v bool) DispatcherOption {
	return func(d *dispatcher) {
		d.forceWait = v
	}
}

// WithMetrics records dispatch and handler metrics; m must be registered by the caller
func WithMetrics(m *HookMetrics) DispatcherOption {
	return func(d *dispatcher) {
		d.metrics = m
	}
}

// WithTracer creates "hook.dispatch" and "hook.handler" spans on tracer
func WithTracer(tracer trace.Tracer) DispatcherOption {
	return func(d *dispatcher) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithDelegateSource adds a source of legacy delegates, consulted after the built-in table
func WithDelegateSource(src DelegateSource) DispatcherOption {
	return func(d *dispatcher) {
		if src != nil {
			d.sources = append(d.sources, src)
		}
	}
}

// WithOverrides applies configured rules to every registration
func WithOverrides(rules []Override) DispatcherOption {
	return func(d *dispatcher) {
		if len(rules) > 0 {
			d.overrides = NewOverrideRouter(rules)
		}
	}
}

// WithOverrideRouter shares a router, Load on it affects later registrations
func WithOverrideRouter(router *OverrideRouter) DispatcherOption {
	return func(d *dispatcher) {
		d.overrides = router
	}
}

// WithCloseTimeout bounds how long Close waits for pool workers
func WithCloseTimeout(timeout time.Duration) DispatcherOption {
	return func(d *dispatcher) {
		d.closeTimeout = timeout
	}
}
