package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-hooks/logger"
	"github.com/stretchr/testify/require"
)

const (
	typeDoorOpening Type = "door.opening"
	typeTick        Type = "tick"
)

// doorOpening cancellable test event
type doorOpening struct {
	Cancellation[string]
	Door  string
	Actor string
	Force int
}

func (*doorOpening) EventType() Type { return typeDoorOpening }

// tick records which handlers saw it
type tick struct {
	mu   sync.Mutex
	seen []string
	N    int
}

func (*tick) EventType() Type { return typeTick }

func (e *tick) mark(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, name)
}

func (e *tick) order() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.seen))
	copy(out, e.seen)
	return out
}

// marker returns a closure that marks name; register it under the same name
func marker(name string) func(*tick) {
	return func(e *tick) { e.mark(name) }
}

// markDeclared is a declared function, identified by its code without a name
func markDeclared(e *tick) { e.mark("declared") }

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) (Dispatcher, *logger.TestCtxLogger) {
	t.Helper()
	tl := logger.NewTestCtxLogger()
	base := []DispatcherOption{
		WithLogger(tl.Logger()),
		WithTickInterval(time.Millisecond),
		WithDefaultTimeout(time.Second),
		WithPoolSize(8),
	}
	d, err := NewDispatcher(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	return d, tl
}

func mustRegister(t *testing.T, d Dispatcher, desc Descriptor) *Registration {
	t.Helper()
	reg, err := d.Register(context.Background(), desc)
	require.NoError(t, err)
	return reg
}

// forever never finishes unless killed
func forever(*doorOpening) Coroutine {
	return func(yield func(any, error) bool) {
		for yield(nil, nil) {
		}
	}
}
