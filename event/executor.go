package event

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Status normalized result of one invocation
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusTimedOut:
		return "timed_out"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is produced once per invocation
type Outcome struct {
	Status   Status
	Value    any
	Err      error
	Duration time.Duration
}

// Abandon stops waiting on a handler and kills it where the kind allows
type Abandon func()

func noAbandon() {}

// Executor runs a bound handler; onComplete is called exactly once, possibly
// before Execute returns (sync) or later from another goroutine
type Executor interface {
	Execute(ctx context.Context, ev Event, reg *Registration, onComplete func(Outcome)) Abandon
}

// invoke calls the handler, turning panics into ErrHandlerPanic
func invoke(ctx context.Context, ev Event, reg *Registration) (out []reflect.Value, err error) {
	if got := reflect.TypeOf(ev); got != reg.goType && !got.AssignableTo(reg.goType) {
		return nil, ErrInvalidHandler.WithMsgf("handler %s expects %s, event is %s", reg.name, reg.goType, got)
	}
	defer func() {
		if r := recover(); r != nil {
			err = ErrHandlerPanic.
				WithData("handler", reg.name).
				WithData("panic", fmt.Sprint(r))
		}
	}()
	return reg.fn.Call(reg.binder.args(ctx, ev)), nil
}

// errorAt extracts a returned error, nil interfaces stay nil
func errorAt(out []reflect.Value, i int) error {
	if out[i].IsNil() {
		return nil
	}
	return out[i].Interface().(error)
}

// syncExecutor runs classic handlers in-line
type syncExecutor struct{}

func (syncExecutor) Execute(ctx context.Context, ev Event, reg *Registration, onComplete func(Outcome)) Abandon {
	start := time.Now()
	out, err := invoke(ctx, ev, reg)
	o := Outcome{Status: StatusSuccess}
	switch {
	case err != nil:
		o = Outcome{Status: StatusError, Err: err}
	case reg.shape == shapeErr:
		if e := errorAt(out, 0); e != nil {
			o = Outcome{Status: StatusError, Err: e}
		}
	case reg.shape == shapeValue:
		o.Value = out[0].Interface()
	case reg.shape == shapeValueErr:
		if e := errorAt(out, 1); e != nil {
			o = Outcome{Status: StatusError, Err: e}
		} else {
			o.Value = out[0].Interface()
		}
	}
	o.Duration = time.Since(start)
	onComplete(o)
	return noAbandon
}

// deferredExecutor hands coroutines to the Scheduler
type deferredExecutor struct {
	scheduler *Scheduler
}

func (e deferredExecutor) Execute(ctx context.Context, ev Event, reg *Registration, onComplete func(Outcome)) Abandon {
	start := time.Now()
	fail := func(err error) Abandon {
		onComplete(Outcome{Status: StatusError, Err: err, Duration: time.Since(start)})
		return noAbandon
	}

	out, err := invoke(ctx, ev, reg)
	if err != nil {
		return fail(err)
	}
	if reg.shape == shapeCoroutineErr {
		if err := errorAt(out, 1); err != nil {
			return fail(err)
		}
	}
	if out[0].IsNil() {
		onComplete(Outcome{Status: StatusSuccess, Duration: time.Since(start)})
		return noAbandon
	}

	co := out[0].Convert(coroutineType).Interface().(Coroutine)
	kill, err := e.scheduler.Submit(ctx, reg.name, co, onComplete)
	if err != nil {
		return fail(err)
	}
	return Abandon(kill)
}

// asyncExecutor waits for futures on the dispatcher pool
type asyncExecutor struct {
	pool *ants.Pool
}

func (e asyncExecutor) Execute(ctx context.Context, ev Event, reg *Registration, onComplete func(Outcome)) Abandon {
	start := time.Now()
	settled := func(f *Future) Outcome {
		v, err := f.Result()
		if err != nil {
			return Outcome{Status: StatusError, Err: err, Duration: time.Since(start)}
		}
		return Outcome{Status: StatusSuccess, Value: v, Duration: time.Since(start)}
	}

	out, err := invoke(ctx, ev, reg)
	if err != nil {
		onComplete(Outcome{Status: StatusError, Err: err, Duration: time.Since(start)})
		return noAbandon
	}
	if reg.shape == shapeFutureErr {
		if err := errorAt(out, 1); err != nil {
			onComplete(Outcome{Status: StatusError, Err: err, Duration: time.Since(start)})
			return noAbandon
		}
	}

	fut, _ := out[0].Interface().(*Future)
	if fut == nil {
		onComplete(Outcome{Status: StatusSuccess, Duration: time.Since(start)})
		return noAbandon
	}

	select {
	case <-fut.Done():
		onComplete(settled(fut))
		return noAbandon
	default:
	}

	kill := make(chan struct{})
	waiter := func() {
		select {
		case <-fut.Done():
			onComplete(settled(fut))
		case <-kill:
			onComplete(Outcome{
				Status:   StatusTimedOut,
				Err:      ErrHandlerTimeout.WithData("handler", reg.name),
				Duration: time.Since(start),
			})
		}
	}
	if e.pool == nil || e.pool.Submit(waiter) != nil {
		go waiter()
	}

	var once sync.Once
	return func() {
		once.Do(func() { close(kill) })
	}
}
