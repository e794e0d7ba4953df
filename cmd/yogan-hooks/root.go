package main

import (
	"context"
	"time"

	"github.com/KOMKZ/go-yogan-hooks/di"
	"github.com/KOMKZ/go-yogan-hooks/flagx"
	"github.com/KOMKZ/go-yogan-hooks/telemetry"
	"github.com/spf13/cobra"
)

// hookFlags command line overrides of the hook section
type hookFlags struct {
	PoolSize       int           `flag:"pool-size" usage:"worker pool size" config:"hook.pool_size"`
	DefaultTimeout time.Duration `flag:"timeout" usage:"default handler timeout" config:"hook.default_timeout"`
	TickInterval   time.Duration `flag:"tick" usage:"deferred handler step interval" config:"hook.tick_interval"`
	ForceWait      bool          `flag:"force-wait" usage:"wait on every handler, ignoring do_not_wait" config:"hook.force_wait"`
	Telemetry      bool          `flag:"telemetry" usage:"export dispatch spans" config:"telemetry.enabled"`
	Exporter       string        `flag:"exporter" usage:"telemetry exporter: otlp, stdout or noop" config:"telemetry.exporter.type"`
	Endpoint       string        `flag:"otlp-endpoint" usage:"otlp collector address" config:"telemetry.exporter.endpoint"`
}

type rootOptions struct {
	configPath string
	flagKeys   map[string]string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "yogan-hooks",
		Short:         "Dispatch sample events through the hook engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./configs", "directory holding config.yaml")

	keys, err := flagx.BindFlags(root.PersistentFlags(), &hookFlags{})
	if err != nil {
		panic(err)
	}
	opts.flagKeys = keys

	root.AddCommand(newDemoCmd(opts), newHandlersCmd(opts), newHealthCmd(opts))
	return root
}

// withApp builds the application from config and flags, runs fn and shuts it down
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(context.Context, *di.Application) error) error {
	app := di.NewApplication(
		di.WithName("yogan-hooks"),
		di.WithConfigPath(opts.configPath),
		di.WithConfigPrefix("HOOKS"),
		di.WithFlags(cmd.Flags(), opts.flagKeys),
		di.WithTelemetryOptions(telemetry.WithWriter(cmd.OutOrStdout())),
	)
	if err := app.Setup(); err != nil {
		return err
	}
	if err := app.Start(); err != nil {
		return err
	}

	runErr := fn(cmd.Context(), app)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
