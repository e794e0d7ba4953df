// Package telemetry builds the OpenTelemetry tracer and meter providers used by the hook engine
package telemetry

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/KOMKZ/go-yogan-hooks/component"
	"github.com/KOMKZ/go-yogan-hooks/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	_ component.Component           = (*Component)(nil)
	_ component.HealthCheckProvider = (*Component)(nil)
)

// Component owns the tracer and meter providers
type Component struct {
	mu             sync.Mutex
	config         Config
	logger         *logger.CtxZapLogger
	writer         io.Writer
	global         bool
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	stopped        bool
}

// Option configures a Component
type Option func(*Component)

// WithWriter target of the stdout exporters, os.Stdout by default
func WithWriter(w io.Writer) Option {
	return func(c *Component) { c.writer = w }
}

// WithLogger overrides the "yogan" module logger
func WithLogger(log *logger.CtxZapLogger) Option {
	return func(c *Component) { c.logger = log }
}

// WithoutGlobal keeps the providers out of the otel globals
func WithoutGlobal() Option {
	return func(c *Component) { c.global = false }
}

func NewComponent(opts ...Option) *Component {
	c := &Component{
		config: DefaultConfig(),
		writer: os.Stdout,
		global: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Component) Name() string {
	return component.ComponentTelemetry
}

func (c *Component) DependsOn() []string {
	return []string{component.ComponentConfig, component.ComponentLogger}
}

// Init reads the "telemetry" section and creates the providers when enabled
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	if c.logger == nil {
		c.logger = logger.GetLogger("yogan")
	}

	c.config = DefaultConfig()
	if loader != nil && loader.IsSet(ConfigKey) {
		if err := loader.Unmarshal(ConfigKey, &c.config); err != nil {
			return ErrInvalidConfig.Wrap(err)
		}
	}
	if !c.config.Enabled {
		c.logger.InfoCtx(ctx, "telemetry disabled")
		return nil
	}

	c.config.ApplyDefaults()
	if err := c.config.Validate(); err != nil {
		return err
	}

	res, err := newResource(ctx, c.config)
	if err != nil {
		return ErrExporter.Wrap(err)
	}

	spans, err := newSpanExporter(ctx, c.config.Exporter, c.writer)
	if err != nil {
		return ErrExporter.Wrap(err)
	}
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(c.sampler()),
	}
	if c.config.Batch.Enabled {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(spans,
			sdktrace.WithBatchTimeout(c.config.Batch.ScheduleDelay),
			sdktrace.WithExportTimeout(c.config.Batch.ExportTimeout)))
	} else {
		tpOpts = append(tpOpts, sdktrace.WithSyncer(spans))
	}
	c.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)

	if c.config.Metrics.Enabled {
		exp, err := newMetricExporter(ctx, c.config.Exporter, c.writer)
		if err != nil {
			_ = c.tracerProvider.Shutdown(ctx)
			return ErrExporter.Wrap(err)
		}
		mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		if exp != nil {
			mpOpts = append(mpOpts, sdkmetric.WithReader(
				sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(c.config.Metrics.ExportInterval))))
		}
		c.meterProvider = sdkmetric.NewMeterProvider(mpOpts...)
	}

	if c.global {
		otel.SetTracerProvider(c.tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))
		if c.meterProvider != nil {
			otel.SetMeterProvider(c.meterProvider)
		}
	}

	c.logger.InfoCtx(ctx, "telemetry initialized",
		zap.String("service_name", c.config.ServiceName),
		zap.String("exporter", c.config.Exporter.Type),
		zap.Bool("metrics", c.meterProvider != nil))
	return nil
}

func (c *Component) sampler() sdktrace.Sampler {
	switch c.config.Sampler.Type {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "trace_id_ratio":
		return sdktrace.TraceIDRatioBased(c.config.Sampler.Ratio)
	}
	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

func (c *Component) Start(ctx context.Context) error {
	return nil
}

// Stop flushes and shuts both providers down
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	c.stopped = true

	var err error
	if c.tracerProvider != nil {
		err = multierr.Append(err, c.tracerProvider.Shutdown(ctx))
	}
	if c.meterProvider != nil {
		err = multierr.Append(err, c.meterProvider.Shutdown(ctx))
	}
	if err != nil {
		c.logger.WarnCtx(ctx, "telemetry shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// Shutdown lets samber/do stop the component with the injector
func (c *Component) Shutdown(ctx context.Context) error {
	return c.Stop(ctx)
}

// ForceFlush exports buffered spans and metrics
func (c *Component) ForceFlush(ctx context.Context) error {
	var err error
	if c.tracerProvider != nil {
		err = multierr.Append(err, c.tracerProvider.ForceFlush(ctx))
	}
	if c.meterProvider != nil {
		err = multierr.Append(err, c.meterProvider.ForceFlush(ctx))
	}
	return err
}

// Tracer falls back to the global provider when telemetry is disabled
func (c *Component) Tracer(name string) trace.Tracer {
	if c.tracerProvider == nil {
		return otel.Tracer(name)
	}
	return c.tracerProvider.Tracer(name)
}

// Meter falls back to the global provider when metrics are disabled
func (c *Component) Meter(name string) metric.Meter {
	if c.meterProvider == nil {
		return otel.Meter(name)
	}
	return c.meterProvider.Meter(name)
}

func (c *Component) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Component) GetConfig() Config {
	return c.config
}

// GetHealthChecker implements component.HealthCheckProvider
func (c *Component) GetHealthChecker() component.HealthChecker {
	return healthChecker{c: c}
}

type healthChecker struct {
	c *Component
}

func (h healthChecker) Name() string {
	return component.ComponentTelemetry
}

// Check fails once the providers are shut down
func (h healthChecker) Check(ctx context.Context) error {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.c.config.Enabled && h.c.stopped {
		return ErrExporter.WithMsgf("telemetry providers shut down")
	}
	return nil
}

// HealthCheck lets samber/do include the component in injector health checks
func (c *Component) HealthCheck(ctx context.Context) error {
	return c.GetHealthChecker().Check(ctx)
}
