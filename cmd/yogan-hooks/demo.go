package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/KOMKZ/go-yogan-hooks/di"
	"github.com/KOMKZ/go-yogan-hooks/event"
	"github.com/KOMKZ/go-yogan-hooks/flagx"
	"github.com/spf13/cobra"
)

// DoorOpening is raised before a door opens; a denied decision keeps it shut
type DoorOpening struct {
	event.BaseEvent
	event.Cancellation[string]
	Door  string
	Actor string
	Force int
}

func (*DoorOpening) EventType() event.Type { return "door.opening" }

// doorPolicy groups the sample handlers; its methods share one owner
type doorPolicy struct {
	locked map[string]bool
	out    io.Writer
}

func (p *doorPolicy) Handlers() []event.Descriptor {
	proto := (*DoorOpening)(nil)
	return []event.Descriptor{
		{Event: proto, Name: "door.lock", Handler: event.Sync(p.checkLock), Priority: event.Highest},
		{Event: proto, Name: "door.force", Handler: event.Deferred(p.forceOpen), Params: []string{"Force"}},
		{Event: proto, Name: "audit.door", Handler: event.Async(p.audit), Priority: event.Lowest,
			Sync: event.SyncOptions{DoNotWait: true}},
		{Event: proto, Name: "door.greeting", Handler: event.Sync(p.greet), Once: true, Priority: event.AlwaysLast},
	}
}

func (p *doorPolicy) checkLock(ev *DoorOpening) event.Decision[string] {
	if p.locked[ev.Door] {
		return event.Deny("locked")
	}
	return event.Allow("")
}

// forceOpen spends one tick per point of force; enough force breaks a lock
func (p *doorPolicy) forceOpen(force int) event.Coroutine {
	return func(yield func(any, error) bool) {
		for i := 0; i < force; i++ {
			if !yield(nil, nil) {
				return
			}
		}
		if force >= 3 {
			yield(event.Allow("forced"), nil)
		}
	}
}

func (p *doorPolicy) audit(ctx context.Context, ev *DoorOpening) *event.Future {
	return event.Go(ctx, func(context.Context) (any, error) {
		return fmt.Sprintf("%s at %s", ev.Actor, ev.Door), nil
	})
}

func (p *doorPolicy) greet(ev *DoorOpening) {
	fmt.Fprintf(p.out, "welcome, %s\n", ev.Actor)
}

type demoFlags struct {
	Door   string   `flag:"door" default:"front" usage:"door to open"`
	Actor  string   `flag:"actor" default:"guest" usage:"who opens it"`
	Force  int      `flag:"force" usage:"deferred steps spent forcing the door"`
	Locked []string `flag:"locked" default:"vault" usage:"doors that start locked"`
	Times  int      `flag:"times" default:"1" usage:"how many times to raise the event"`
}

func newDemoCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Raise door.opening events and print each dispatch report",
	}
	if _, err := flagx.BindFlags(cmd.Flags(), &demoFlags{}); err != nil {
		panic(err)
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var f demoFlags
		if err := flagx.ParseFlags(cmd.Flags(), &f); err != nil {
			return err
		}
		return withApp(cmd, opts, func(ctx context.Context, app *di.Application) error {
			d := app.Dispatcher()
			if d == nil {
				return fmt.Errorf("hook dispatcher disabled by configuration")
			}

			out := cmd.OutOrStdout()
			policy := &doorPolicy{locked: map[string]bool{}, out: out}
			for _, door := range f.Locked {
				policy.locked[door] = true
			}
			if _, err := d.RegisterSet(ctx, policy); err != nil {
				return err
			}
			d.Delegates().On("door.opening", "legacy.log", func(_ context.Context, ev event.Event) error {
				fmt.Fprintf(out, "legacy delegate saw %s\n", ev.EventType())
				return nil
			})

			for i := 0; i < f.Times; i++ {
				ev := &DoorOpening{Door: f.Door, Actor: f.Actor, Force: f.Force}
				_, report := d.RunWithReport(ctx, ev)
				printReport(out, report)
				fmt.Fprintf(out, "door %s: %s (decided by %q)\n\n", ev.Door, ev.Decision(), ev.DecidedBy())
			}
			return nil
		})
	}
	return cmd
}

func printReport(out io.Writer, r *event.Report) {
	fmt.Fprintf(out, "%s %s in %s, %d delegate(s)\n", r.EventType, r.State, r.Duration.Round(time.Microsecond), r.Delegates)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLER\tKIND\tPRIORITY\tSTATUS\tWAITED\tMERGED\tVALUE")
	for _, res := range r.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\t%v\n",
			res.Handler, res.Kind, res.Priority, res.Outcome.Status, res.Waited, res.Merged, res.Outcome.Value)
	}
	_ = w.Flush()

	if len(r.Skipped) > 0 {
		fmt.Fprintf(out, "skipped: %v\n", r.Skipped)
	}
	if r.DelegateErr != nil {
		fmt.Fprintf(out, "delegate errors: %v\n", r.DelegateErr)
	}
}
