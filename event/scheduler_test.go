package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-hooks/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcomes struct {
	mu   sync.Mutex
	got  []Outcome
	done chan struct{}
}

func newOutcomes() *outcomes {
	return &outcomes{done: make(chan struct{}, 16)}
}

func (o *outcomes) add(out Outcome) {
	o.mu.Lock()
	o.got = append(o.got, out)
	o.mu.Unlock()
	o.done <- struct{}{}
}

func (o *outcomes) wait(t *testing.T) Outcome {
	t.Helper()
	select {
	case <-o.done:
	case <-time.After(time.Second):
		t.Fatal("coroutine did not finish")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.got[len(o.got)-1]
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(time.Millisecond, logger.NewTestCtxLogger().Logger())
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func steps(n int, result any) Coroutine {
	return func(yield func(any, error) bool) {
		for i := 0; i < n; i++ {
			if !yield(i, nil) {
				return
			}
		}
		yield(result, nil)
	}
}

func TestScheduler_OneStepPerTick(t *testing.T) {
	s := newTestScheduler(t)
	out := newOutcomes()

	_, err := s.Submit(context.Background(), "steps", steps(3, "done"), out.add)
	require.NoError(t, err)

	o := out.wait(t)
	assert.Equal(t, StatusSuccess, o.Status)
	assert.Equal(t, "done", o.Value)
	// one step per tick: 3 yields, the result and the exhausted iterator
	assert.GreaterOrEqual(t, o.Duration, 4*time.Millisecond)
	assert.Zero(t, s.Pending())
}

func TestScheduler_Kill(t *testing.T) {
	s := newTestScheduler(t)
	out := newOutcomes()
	started := make(chan struct{})
	stopped := make(chan struct{})

	co := func(yield func(any, error) bool) {
		defer close(stopped)
		close(started)
		for yield(nil, nil) {
		}
	}
	kill, err := s.Submit(context.Background(), "endless", co, out.add)
	require.NoError(t, err)

	<-started
	kill()
	o := out.wait(t)
	assert.Equal(t, StatusTimedOut, o.Status)
	assert.ErrorIs(t, o.Err, ErrHandlerTimeout)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("coroutine was not unwound")
	}
}

func TestScheduler_ContextCancel(t *testing.T) {
	s := newTestScheduler(t)
	out := newOutcomes()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Submit(ctx, "endless", steps(1000000, nil), out.add)
	require.NoError(t, err)
	cancel()

	o := out.wait(t)
	assert.Equal(t, StatusTimedOut, o.Status)
	assert.ErrorIs(t, o.Err, context.Canceled)
}

func TestScheduler_ErrorsAndPanics(t *testing.T) {
	s := newTestScheduler(t)

	failing := newOutcomes()
	_, err := s.Submit(context.Background(), "fails", func(yield func(any, error) bool) {
		yield(nil, errors.New("bad"))
	}, failing.add)
	require.NoError(t, err)
	o := failing.wait(t)
	assert.Equal(t, StatusError, o.Status)
	assert.EqualError(t, o.Err, "bad")

	panicking := newOutcomes()
	_, err = s.Submit(context.Background(), "panics", func(yield func(any, error) bool) {
		if yield(nil, nil) {
			panic("boom")
		}
	}, panicking.add)
	require.NoError(t, err)
	o = panicking.wait(t)
	assert.Equal(t, StatusError, o.Status)
	assert.ErrorIs(t, o.Err, ErrHandlerPanic)
}

func TestScheduler_StopFailsPending(t *testing.T) {
	s, err := NewScheduler(time.Hour, logger.NewTestCtxLogger().Logger())
	require.NoError(t, err)
	s.Start()

	out := newOutcomes()
	_, err = s.Submit(context.Background(), "never-stepped", steps(1, nil), out.add)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Pending())

	require.NoError(t, s.Stop())
	o := out.wait(t)
	assert.ErrorIs(t, o.Err, ErrSchedulerStopped)
	assert.Zero(t, s.Pending())

	_, err = s.Submit(context.Background(), "late", steps(1, nil), out.add)
	assert.ErrorIs(t, err, ErrSchedulerStopped)
	assert.NoError(t, s.Stop())
}
