package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/KOMKZ/go-yogan-hooks/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestBridge_RunsAfterChainInOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	mustRegister(t, d, Descriptor{Event: (*tick)(nil), Handler: Sync(marker("chain")), Name: "chain"})
	d.Delegates().On(typeTick, "legacy-1", func(_ context.Context, ev Event) error {
		ev.(*tick).mark("legacy-1")
		return nil
	})
	d.Delegates().On(typeTick, "legacy-2", func(_ context.Context, ev Event) error {
		ev.(*tick).mark("legacy-2")
		return nil
	})

	ev, report := d.RunWithReport(ctx, &tick{})
	assert.Equal(t, []string{"chain", "legacy-1", "legacy-2"}, ev.(*tick).order())
	assert.Equal(t, 2, report.Delegates)
	assert.NoError(t, report.DelegateErr)
}

func TestBridge_IsolatesAndCombinesFailures(t *testing.T) {
	d, tl := newTestDispatcher(t)
	reached := false

	d.Delegates().On(typeTick, "fails", func(context.Context, Event) error { return errors.New("nope") })
	d.Delegates().On(typeTick, "panics", func(context.Context, Event) error { panic("boom") })
	d.Delegates().On(typeTick, "reached", func(context.Context, Event) error {
		reached = true
		return nil
	})

	_, report := d.RunWithReport(context.Background(), &tick{})

	assert.True(t, reached)
	assert.Equal(t, StateCompleted, report.State)
	require.Error(t, report.DelegateErr)
	assert.Len(t, multierr.Errors(report.DelegateErr), 2)
	assert.ErrorIs(t, report.DelegateErr, ErrDelegateFailed)
	assert.Equal(t, 2, tl.CountLogs("warn"))
}

func TestBridge_CacheInvalidatedByTable(t *testing.T) {
	d, _ := newTestDispatcher(t)
	var calls atomic.Int32
	count := func(context.Context, Event) error {
		calls.Add(1)
		return nil
	}

	d.Run(context.Background(), &tick{})
	d.Delegates().On(typeTick, "counter", count)
	d.Run(context.Background(), &tick{})
	assert.Equal(t, int32(1), calls.Load())

	assert.True(t, d.Delegates().Off(typeTick, "counter"))
	assert.False(t, d.Delegates().Off(typeTick, "counter"))
	d.Run(context.Background(), &tick{})
	assert.Equal(t, int32(1), calls.Load())
}

type staticSource map[Type][]NamedDelegate

func (s staticSource) Delegates(t Type) []NamedDelegate { return s[t] }

func TestBridge_ExternalSourceIsLookedUpOnce(t *testing.T) {
	var lookups atomic.Int32
	var calls atomic.Int32
	src := countingSource{lookups: &lookups, inner: staticSource{
		typeTick: {{Name: "external", Fn: func(context.Context, Event) error {
			calls.Add(1)
			return nil
		}}},
	}}
	d, _ := newTestDispatcher(t, WithDelegateSource(src))

	for i := 0; i < 3; i++ {
		d.Run(context.Background(), &tick{})
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int32(1), lookups.Load())
}

type countingSource struct {
	lookups *atomic.Int32
	inner   DelegateSource
}

func (s countingSource) Delegates(t Type) []NamedDelegate {
	s.lookups.Add(1)
	return s.inner.Delegates(t)
}

func TestFromDelegate_AdaptsIntoChain(t *testing.T) {
	d, _ := newTestDispatcher(t)
	mustRegister(t, d, Descriptor{
		Event: (*tick)(nil),
		Handler: FromDelegate(func(_ context.Context, ev Event) error {
			ev.(*tick).mark("adapted")
			return nil
		}),
		Name:     "adapted",
		Priority: Highest,
	})
	mustRegister(t, d, Descriptor{Event: (*tick)(nil), Handler: Sync(marker("normal")), Name: "normal"})

	ev := Raise(context.Background(), d, &tick{})
	assert.Equal(t, []string{"adapted", "normal"}, ev.order())
}

// changingSource adds a delegate to table while the bridge is collecting
type changingSource struct {
	table *DelegateTable
	once  *sync.Once
}

func (s changingSource) Delegates(t Type) []NamedDelegate {
	s.once.Do(func() {
		s.table.On(t, "added-mid-lookup", func(context.Context, Event) error { return nil })
	})
	return nil
}

func TestBridge_ChangeDuringLookupIsNotCached(t *testing.T) {
	table := NewDelegateTable()
	b := newBridge(logger.NewTestCtxLogger().Logger(), table, changingSource{table: table, once: &sync.Once{}})

	assert.Empty(t, b.lookup(typeTick))
	names := []string{}
	for _, d := range b.lookup(typeTick) {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"added-mid-lookup"}, names)
}

func TestBridge_ConcurrentChangesSettle(t *testing.T) {
	table := NewDelegateTable()
	b := newBridge(logger.NewTestCtxLogger().Logger(), table)
	noop := func(context.Context, Event) error { return nil }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			table.On(typeTick, "d", noop)
		}()
		go func() {
			defer wg.Done()
			b.lookup(typeTick)
		}()
	}
	wg.Wait()

	assert.Len(t, b.lookup(typeTick), 8)
}
