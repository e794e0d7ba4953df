package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KOMKZ/go-yogan-hooks/di"
	"github.com/spf13/cobra"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Build the components and print their health report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *di.Application) error {
				report := app.HealthReport(ctx)
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
				if !report.IsHealthy() && !report.IsDegraded() {
					return fmt.Errorf("unhealthy")
				}
				return nil
			})
		},
	}
}
