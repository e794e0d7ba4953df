package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Future is the result handle returned by async handlers
// Resolve and Reject settle it once, later calls are ignored
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewFuture creates an unsettled future
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future already settled with v
func Resolved(v any) *Future {
	f := NewFuture()
	f.Resolve(v)
	return f
}

// Rejected returns a future already failed with err
func Rejected(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Resolve settles the future with v, reports whether this call settled it
func (f *Future) Resolve(v any) bool {
	return f.settle(v, nil)
}

// Reject settles the future with err, reports whether this call settled it
func (f *Future) Reject(err error) bool {
	return f.settle(nil, err)
}

func (f *Future) settle(v any, err error) bool {
	settled := false
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
		settled = true
	})
	return settled
}

// Done is closed once the future settles
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled value, zero values while pending
func (f *Future) Result() (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		return nil, nil
	}
}

// Wait blocks until the future settles or ctx ends
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Go runs fn on the shared ants pool and returns its future
// Panics inside fn reject the future with ErrHandlerPanic
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Future {
	f := NewFuture()
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				f.Reject(ErrHandlerPanic.WithData("panic", fmt.Sprint(r)))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}

	if err := ants.Submit(task); err != nil {
		go task()
	}
	return f
}
