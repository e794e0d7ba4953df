package event

import (
	"context"
	"sync"

	"github.com/KOMKZ/go-yogan-hooks/component"
	"github.com/KOMKZ/go-yogan-hooks/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var (
	_ component.Component           = (*Component)(nil)
	_ component.HealthCheckProvider = (*Component)(nil)
)

// Component hook engine component
type Component struct {
	mu         sync.Mutex
	dispatcher Dispatcher
	metrics    *HookMetrics
	logger     *logger.CtxZapLogger
	config     Config
	meter      metric.Meter
	extra      []DispatcherOption
	stopped    bool
}

// NewComponent creates the component; opts are applied after the configured ones
func NewComponent(opts ...DispatcherOption) *Component {
	return &Component{extra: opts}
}

// Name returns the component name
func (c *Component) Name() string {
	return component.ComponentHook
}

// DependsOn returns the components that must be initialized first
func (c *Component) DependsOn() []string {
	return []string{
		component.ComponentConfig,
		component.ComponentLogger,
		"optional:" + component.ComponentTelemetry,
	}
}

// SetMeter overrides the global meter provider
func (c *Component) SetMeter(meter metric.Meter) {
	c.meter = meter
}

// Init reads the "hook" section and builds the dispatcher
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.logger = logger.GetLogger("yogan")

	c.config = DefaultConfig()
	if loader != nil && loader.IsSet(ConfigKey) {
		if err := loader.Unmarshal(ConfigKey, &c.config); err != nil {
			return ErrInvalidConfig.Wrap(err)
		}
	}

	if !c.config.Enabled {
		c.logger.InfoCtx(ctx, "hook component disabled")
		return nil
	}

	c.config.ApplyDefaults()
	if err := c.config.Validate(); err != nil {
		return err
	}

	opts := []DispatcherOption{
		WithLogger(c.logger),
		WithPoolSize(c.config.PoolSize),
		WithDefaultTimeout(c.config.DefaultTimeout),
		WithTickInterval(c.config.TickInterval),
		WithForceWait(c.config.ForceWait),
		WithOverrides(c.config.Overrides),
	}

	c.metrics = NewHookMetrics(c.config.Metrics.Enabled)
	if c.metrics.IsMetricsEnabled() {
		meter := c.meter
		if meter == nil {
			meter = otel.GetMeterProvider().Meter("hook")
		}
		if err := c.metrics.RegisterMetrics(meter); err != nil {
			c.logger.WarnCtx(ctx, "hook metrics registration failed", zap.Error(err))
		} else {
			opts = append(opts, WithMetrics(c.metrics))
		}
	}

	d, err := NewDispatcher(append(opts, c.extra...)...)
	if err != nil {
		return err
	}
	c.dispatcher = d

	c.logger.InfoCtx(ctx, "hook component initialized",
		zap.Int("pool_size", c.config.PoolSize),
		zap.Duration("default_timeout", c.config.DefaultTimeout),
		zap.Duration("tick_interval", c.config.TickInterval),
		zap.Int("overrides", len(c.config.Overrides)))
	return nil
}

// Start the scheduler already ticks once the dispatcher exists
func (c *Component) Start(ctx context.Context) error {
	return nil
}

// Stop closes the dispatcher
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher == nil || c.stopped {
		return nil
	}
	c.stopped = true
	return c.dispatcher.Close(ctx)
}

// GetDispatcher nil when the component is disabled
func (c *Component) GetDispatcher() Dispatcher {
	return c.dispatcher
}

// GetMetrics the metrics provider, nil before Init
func (c *Component) GetMetrics() *HookMetrics {
	return c.metrics
}

// IsEnabled whether a dispatcher was built
func (c *Component) IsEnabled() bool {
	return c.config.Enabled && c.dispatcher != nil
}

// GetHealthChecker implements component.HealthCheckProvider
func (c *Component) GetHealthChecker() component.HealthChecker {
	return &healthChecker{c: c}
}

type healthChecker struct {
	c *Component
}

func (h *healthChecker) Name() string {
	return component.ComponentHook
}

// Check fails once the component is stopped
func (h *healthChecker) Check(ctx context.Context) error {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.c.dispatcher == nil {
		if !h.c.config.Enabled {
			return nil
		}
		return ErrDispatcherClosed.WithMsgf("hook dispatcher not initialized")
	}
	if h.c.stopped {
		return ErrDispatcherClosed
	}
	return nil
}

// Shutdown lets samber/do stop the component with the injector
func (c *Component) Shutdown(ctx context.Context) error {
	return c.Stop(ctx)
}

// HealthCheck lets samber/do include the component in injector health checks
func (c *Component) HealthCheck(ctx context.Context) error {
	return c.GetHealthChecker().Check(ctx)
}
