package event

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KOMKZ/go-yogan-hooks/logger"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// DefaultTickInterval how often pending coroutines are advanced
const DefaultTickInterval = 10 * time.Millisecond

// Scheduler steps deferred handler coroutines, one yield per coroutine per tick
// Steps run on a single gocron job in singleton mode, so coroutines never run concurrently
type Scheduler struct {
	mu      sync.Mutex
	tasks   []*coTask
	stopped bool

	cron    gocron.Scheduler
	tick    time.Duration
	pending atomic.Int64
	logger  *logger.CtxZapLogger
}

// coTask one running coroutine
type coTask struct {
	ctx        context.Context
	name       string
	next       func() (any, error, bool)
	stop       func()
	onComplete func(Outcome)
	started    time.Time
	last       any
	killed     atomic.Bool
	finished   bool
}

// NewScheduler creates a stopped scheduler, call Start to begin ticking
func NewScheduler(tick time.Duration, log *logger.CtxZapLogger) (*Scheduler, error) {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	if log == nil {
		log = logger.GetLogger("yogan")
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create coroutine scheduler: %w", err)
	}

	s := &Scheduler{cron: cron, tick: tick, logger: log}
	_, err = cron.NewJob(
		gocron.DurationJob(tick),
		gocron.NewTask(s.step),
		gocron.WithName("hook-coroutine-stepper"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = cron.Shutdown()
		return nil, fmt.Errorf("register coroutine stepper: %w", err)
	}
	return s, nil
}

// Start begins ticking
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Submit queues co; onComplete fires exactly once from the stepper goroutine
// The returned func kills the coroutine at its next step
func (s *Scheduler) Submit(ctx context.Context, name string, co Coroutine, onComplete func(Outcome)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrSchedulerStopped
	}

	next, stop := iter.Pull2(co)
	t := &coTask{
		ctx:        ctx,
		name:       name,
		next:       next,
		stop:       stop,
		onComplete: onComplete,
		started:    time.Now(),
	}
	s.tasks = append(s.tasks, t)
	s.pending.Add(1)
	return func() { t.killed.Store(true) }, nil
}

// Pending number of coroutines not yet finished
func (s *Scheduler) Pending() int64 {
	return s.pending.Load()
}

// step advances every queued coroutine once, newly submitted ones wait for the next tick
func (s *Scheduler) step() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	keep := tasks[:0]
	for _, t := range tasks {
		if s.advance(t) {
			keep = append(keep, t)
		}
	}

	s.mu.Lock()
	s.tasks = append(keep, s.tasks...)
	s.mu.Unlock()
}

// advance returns false once t is finished
func (s *Scheduler) advance(t *coTask) bool {
	if t.killed.Load() || t.ctx.Err() != nil {
		t.halt()
		err := ErrHandlerTimeout.WithData("handler", t.name)
		if cause := t.ctx.Err(); cause != nil {
			err = err.Wrap(cause)
		}
		s.finish(t, Outcome{Status: StatusTimedOut, Err: err})
		return false
	}

	v, err, ok, panicked := s.resume(t)
	switch {
	case panicked != nil:
		s.finish(t, Outcome{Status: StatusError, Err: panicked})
		return false
	case !ok:
		s.finish(t, Outcome{Status: StatusSuccess, Value: t.last})
		return false
	case err != nil:
		t.halt()
		s.finish(t, Outcome{Status: StatusError, Err: err})
		return false
	}
	t.last = v
	return true
}

// resume calls next; a panic inside the coroutine is re-raised by next and recovered here
func (s *Scheduler) resume(t *coTask) (v any, err error, ok bool, panicked error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = ErrHandlerPanic.WithData("handler", t.name).WithData("panic", fmt.Sprint(r))
		}
	}()
	v, err, ok = t.next()
	return
}

// halt stops the coroutine, a coroutine that misbehaves while unwinding is ignored
func (t *coTask) halt() {
	defer func() { _ = recover() }()
	t.stop()
}

func (s *Scheduler) finish(t *coTask, o Outcome) {
	if t.finished {
		return
	}
	t.finished = true
	o.Duration = time.Since(t.started)
	t.onComplete(o)
	s.pending.Add(-1)
}

// Stop shuts the ticker down and fails every pending coroutine with ErrSchedulerStopped
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	// waits for a running step
	err := s.cron.Shutdown()

	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	for _, t := range tasks {
		t.halt()
		s.finish(t, Outcome{Status: StatusError, Err: ErrSchedulerStopped.WithData("handler", t.name)})
	}
	if len(tasks) > 0 {
		s.logger.Warn("coroutine scheduler stopped with pending handlers", zap.Int("pending", len(tasks)))
	}
	return err
}
