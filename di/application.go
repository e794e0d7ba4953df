package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/KOMKZ/go-yogan-hooks/config"
	"github.com/KOMKZ/go-yogan-hooks/event"
	"github.com/KOMKZ/go-yogan-hooks/health"
	"github.com/KOMKZ/go-yogan-hooks/logger"
	"github.com/KOMKZ/go-yogan-hooks/telemetry"
	"github.com/samber/do/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// AppState application state
type AppState int

const (
	StateInit AppState = iota
	StateSetup
	StateRunning
	StateStopping
	StateStopped
)

func (s AppState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateSetup:
		return "Setup"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Application hosts a hook dispatcher inside a samber/do injector
type Application struct {
	injector *do.RootScope

	configPath   string
	configPrefix string
	flags        *pflag.FlagSet
	flagKeys     map[string]string
	configLoader *config.Loader

	logger     *logger.CtxZapLogger
	dispatcher event.Dispatcher
	hookOpts   []event.DispatcherOption
	telOpts    []telemetry.Option

	cancel context.CancelFunc
	state  AppState
	mu     sync.RWMutex

	name    string
	version string

	onSetup    func(*Application) error
	onReady    func(*Application) error
	onShutdown func(context.Context) error
}

// AppOption configures an Application
type AppOption func(*Application)

// WithConfigPath directory holding config.yaml
func WithConfigPath(path string) AppOption {
	return func(app *Application) {
		app.configPath = path
	}
}

// WithConfigPrefix environment variable prefix
func WithConfigPrefix(prefix string) AppOption {
	return func(app *Application) {
		app.configPrefix = prefix
	}
}

// WithFlags maps command line flags onto config keys
func WithFlags(flags *pflag.FlagSet, keys map[string]string) AppOption {
	return func(app *Application) {
		app.flags = flags
		app.flagKeys = keys
	}
}

// WithDispatcherOptions extra options for the hook dispatcher
func WithDispatcherOptions(opts ...event.DispatcherOption) AppOption {
	return func(app *Application) {
		app.hookOpts = append(app.hookOpts, opts...)
	}
}

// WithTelemetryOptions options for the telemetry component
func WithTelemetryOptions(opts ...telemetry.Option) AppOption {
	return func(app *Application) {
		app.telOpts = append(app.telOpts, opts...)
	}
}

func WithName(name string) AppOption {
	return func(app *Application) {
		app.name = name
	}
}

func WithVersion(version string) AppOption {
	return func(app *Application) {
		app.version = version
	}
}

// WithOnSetup runs after the dispatcher is built, the place to register handlers
func WithOnSetup(fn func(*Application) error) AppOption {
	return func(app *Application) {
		app.onSetup = fn
	}
}

func WithOnReady(fn func(*Application) error) AppOption {
	return func(app *Application) {
		app.onReady = fn
	}
}

func WithOnShutdown(fn func(context.Context) error) AppOption {
	return func(app *Application) {
		app.onShutdown = fn
	}
}

// NewApplication creates an application with its own injector
func NewApplication(opts ...AppOption) *Application {
	app := &Application{
		injector:   do.New(),
		configPath: "./configs",
		state:      StateInit,
		name:       "yogan-hooks",
		version:    "0.0.1",
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

func (app *Application) Injector() *do.RootScope {
	return app.injector
}

func (app *Application) Logger() *logger.CtxZapLogger {
	return app.logger
}

func (app *Application) ConfigLoader() *config.Loader {
	return app.configLoader
}

// Dispatcher nil when hook.enabled is false
func (app *Application) Dispatcher() event.Dispatcher {
	return app.dispatcher
}

func (app *Application) State() AppState {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.state
}

func (app *Application) setState(state AppState) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.state = state
}

// Setup loads config, builds the logger and the hook dispatcher, then runs onSetup
func (app *Application) Setup() error {
	app.setState(StateSetup)

	RegisterCoreProviders(app.injector, CoreOptions{
		Config: ConfigOptions{
			ConfigPath:   app.configPath,
			ConfigPrefix: app.configPrefix,
			Flags:        app.flags,
			FlagKeys:     app.flagKeys,
		},
		LoggerModule: app.name,
		Dispatcher:   app.hookOpts,
		Telemetry:    app.telOpts,
	})

	loader, err := do.Invoke[*config.Loader](app.injector)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app.configLoader = loader

	appLogger, err := do.Invoke[*logger.CtxZapLogger](app.injector)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	app.logger = appLogger

	app.logger.Info("application setting up",
		zap.String("name", app.name),
		zap.String("version", app.version),
		zap.String("config_path", app.configPath),
	)

	d, err := do.Invoke[event.Dispatcher](app.injector)
	var notFound *ComponentNotFoundError
	switch {
	case err == nil:
		app.dispatcher = d
	case errors.As(err, &notFound):
		app.logger.Warn("hook dispatcher unavailable", zap.Error(err))
	default:
		return fmt.Errorf("init hook dispatcher: %w", err)
	}

	if app.onSetup != nil {
		if err := app.onSetup(app); err != nil {
			return fmt.Errorf("setup callback: %w", err)
		}
	}
	return nil
}

// Start marks the application running and runs onReady
func (app *Application) Start() error {
	app.setState(StateRunning)

	app.logger.Info("application started",
		zap.String("name", app.name),
		zap.String("version", app.version),
	)

	if app.onReady != nil {
		if err := app.onReady(app); err != nil {
			return fmt.Errorf("ready callback: %w", err)
		}
	}
	return nil
}

// Run sets up, starts and blocks until SIGINT/SIGTERM or ctx is done
func (app *Application) Run(ctx context.Context) error {
	if err := app.Setup(); err != nil {
		return err
	}
	if err := app.Start(); err != nil {
		return err
	}

	ctx, app.cancel = context.WithCancel(ctx)
	app.waitForSignal(ctx)
	return nil
}

// Stop unblocks Run
func (app *Application) Stop() {
	if app.cancel != nil {
		app.cancel()
	}
}

func (app *Application) waitForSignal(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		app.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("shutdown failed", zap.Error(err))
	}
}

// Shutdown runs onShutdown then shuts the injector down, which closes the dispatcher
func (app *Application) Shutdown(ctx context.Context) error {
	app.setState(StateStopping)
	app.logger.Info("application shutting down")

	if app.onShutdown != nil {
		if err := app.onShutdown(ctx); err != nil {
			app.logger.Warn("shutdown callback failed", zap.Error(err))
		}
	}

	report := app.injector.ShutdownWithContext(ctx)
	app.setState(StateStopped)
	if !report.Succeed {
		app.logger.Warn("injector shutdown failed", zap.Error(report))
		return report
	}

	app.logger.Info("application stopped", zap.Duration("shutdown_time", report.ShutdownTime))
	return nil
}

// HealthCheck results per service
func (app *Application) HealthCheck() map[string]error {
	return app.injector.HealthCheck()
}

// HealthReport aggregates the hook checker (required) and telemetry (optional)
func (app *Application) HealthReport(ctx context.Context) *health.Response {
	agg := health.NewAggregator(5 * time.Second)
	agg.SetMetadata("name", app.name)
	agg.SetMetadata("version", app.version)
	agg.SetMetadata("state", app.State().String())

	if comp, err := do.Invoke[*event.Component](app.injector); err == nil {
		agg.Register(comp.GetHealthChecker())
	}
	if tel, err := do.Invoke[*telemetry.Component](app.injector); err == nil {
		agg.RegisterOptional(tel.GetHealthChecker())
	}
	return agg.Check(ctx)
}

func (app *Application) IsHealthy() bool {
	for _, err := range app.HealthCheck() {
		if err != nil {
			return false
		}
	}
	return true
}
