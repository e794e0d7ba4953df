package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/KOMKZ/go-yogan-hooks/di"
	"github.com/KOMKZ/go-yogan-hooks/event"
	"github.com/spf13/cobra"
)

func newHandlersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "handlers",
		Short: "Register the sample table and list the resulting handler order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *di.Application) error {
				d := app.Dispatcher()
				if d == nil {
					return fmt.Errorf("hook dispatcher disabled by configuration")
				}

				policy := &doorPolicy{locked: map[string]bool{}, out: io.Discard}
				if _, err := d.RegisterTable(ctx, policy.Handlers()); err != nil {
					return err
				}
				printHandlers(cmd.OutOrStdout(), d)
				return nil
			})
		},
	}
}

func printHandlers(out io.Writer, d event.Dispatcher) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT\tHANDLER\tKIND\tBINDER\tPRIORITY\tONCE\tDO_NOT_WAIT\tTIMEOUT")
	for _, t := range d.Types() {
		for _, r := range d.Handlers(t) {
			prio := r.Priority().String()
			if r.Demoted() {
				prio += " (demoted)"
			}
			so := r.SyncOptions()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%t\t%s\n",
				t, r.Name(), r.Kind(), r.Binder(), prio, r.Once(), so.DoNotWait, so.Timeout)
		}
	}
	_ = w.Flush()
}
