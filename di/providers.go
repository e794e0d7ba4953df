package di

import (
	"context"

	"github.com/KOMKZ/go-yogan-hooks/config"
	"github.com/KOMKZ/go-yogan-hooks/event"
	"github.com/KOMKZ/go-yogan-hooks/logger"
	"github.com/KOMKZ/go-yogan-hooks/telemetry"
	"github.com/samber/do/v2"
	"github.com/spf13/pflag"
)

// ConfigOptions config loader inputs
type ConfigOptions struct {
	ConfigPath   string            // directory holding config.yaml
	ConfigPrefix string            // environment variable prefix
	Flags        *pflag.FlagSet    // command line flags, only changed ones are applied
	FlagKeys     map[string]string // flag name -> config key
}

// CoreOptions inputs of RegisterCoreProviders
type CoreOptions struct {
	Config       ConfigOptions
	LoggerModule string // defaults to "yogan"
	Dispatcher   []event.DispatcherOption
	Telemetry    []telemetry.Option
}

// RegisterCoreProviders registers config, logging and the hook engine, all lazily built
func RegisterCoreProviders(injector do.Injector, opts CoreOptions) {
	module := opts.LoggerModule
	if module == "" {
		module = "yogan"
	}
	do.Provide(injector, ProvideConfigLoader(opts.Config))
	do.Provide(injector, ProvideLoggerManager)
	do.Provide(injector, ProvideCtxLogger(module))
	do.Provide(injector, ProvideTelemetry(opts.Telemetry...))
	do.Provide(injector, ProvideHookComponent(opts.Dispatcher...))
	do.Provide(injector, ProvideDispatcher)
}

// ProvideConfigLoader builds the *config.Loader, it has no dependencies
func ProvideConfigLoader(opts ConfigOptions) func(do.Injector) (*config.Loader, error) {
	return config.ProvideLoader(config.ProvideLoaderOptions{
		ConfigPath:   opts.ConfigPath,
		ConfigPrefix: opts.ConfigPrefix,
		Flags:        opts.Flags,
		FlagKeys:     opts.FlagKeys,
	})
}

// ProvideLoggerManager reads the "logger" section and falls back to defaults
func ProvideLoggerManager(i do.Injector) (*logger.Manager, error) {
	loader, err := do.Invoke[*config.Loader](i)
	if err != nil {
		return logger.NewManager(logger.DefaultManagerConfig()), nil
	}

	cfg := logger.DefaultManagerConfig()
	if loader.IsSet("logger") {
		if err := loader.Unmarshal("logger", &cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return logger.NewManager(cfg), nil
}

// ProvideCtxLogger returns a provider for the logger of one module
func ProvideCtxLogger(moduleName string) func(do.Injector) (*logger.CtxZapLogger, error) {
	return func(i do.Injector) (*logger.CtxZapLogger, error) {
		mgr, err := do.Invoke[*logger.Manager](i)
		if err != nil {
			return logger.GetLogger(moduleName), nil
		}
		return mgr.GetLogger(moduleName), nil
	}
}

// ProvideTelemetry initializes the telemetry component from the "telemetry" section
func ProvideTelemetry(opts ...telemetry.Option) func(do.Injector) (*telemetry.Component, error) {
	return func(i do.Injector) (*telemetry.Component, error) {
		loader, err := do.Invoke[*config.Loader](i)
		if err != nil {
			return nil, err
		}
		all := opts
		if log, err := do.Invoke[*logger.CtxZapLogger](i); err == nil {
			all = append([]telemetry.Option{telemetry.WithLogger(log)}, opts...)
		}

		comp := telemetry.NewComponent(all...)
		ctx := context.Background()
		if err := comp.Init(ctx, loader); err != nil {
			return nil, err
		}
		if err := comp.Start(ctx); err != nil {
			return nil, err
		}
		return comp, nil
	}
}

// ProvideHookComponent initializes the hook component from the "hook" section
// The injector stops it on Shutdown
func ProvideHookComponent(opts ...event.DispatcherOption) func(do.Injector) (*event.Component, error) {
	return func(i do.Injector) (*event.Component, error) {
		loader, err := do.Invoke[*config.Loader](i)
		if err != nil {
			return nil, err
		}

		base := []event.DispatcherOption{}
		if log, err := do.Invoke[*logger.CtxZapLogger](i); err == nil {
			base = append(base, event.WithLogger(log))
		}
		// telemetry is optional: without a provider the otel globals are used
		tel, telErr := do.Invoke[*telemetry.Component](i)
		if telErr == nil {
			base = append(base, event.WithTracer(tel.Tracer("hook")))
		}

		comp := event.NewComponent(append(base, opts...)...)
		if telErr == nil {
			comp.SetMeter(tel.Meter("hook"))
		}
		ctx := context.Background()
		if err := comp.Init(ctx, loader); err != nil {
			return nil, err
		}
		if err := comp.Start(ctx); err != nil {
			return nil, err
		}
		return comp, nil
	}
}

// ProvideDispatcher exposes the dispatcher of the hook component
func ProvideDispatcher(i do.Injector) (event.Dispatcher, error) {
	comp, err := do.Invoke[*event.Component](i)
	if err != nil {
		return nil, err
	}
	d := comp.GetDispatcher()
	if d == nil {
		return nil, ErrComponentNotFound("hook dispatcher (hook.enabled is false)")
	}
	return d, nil
}

// ErrComponentNotFound builds a ComponentNotFoundError
func ErrComponentNotFound(name string) error {
	return &ComponentNotFoundError{Name: name}
}

// ComponentNotFoundError a provider could not supply its component
type ComponentNotFoundError struct {
	Name string
}

func (e *ComponentNotFoundError) Error() string {
	return "component not found: " + e.Name
}
