package event

import (
	"iter"
	"reflect"
	"regexp"
	"runtime"
	"strings"
)

// Coroutine is the suspended computation returned by deferred handlers
// The scheduler advances it one yield per tick; the value yielded last is the handler result
// and a non-nil error ends it with an Error outcome
//
//	func(ev *DoorOpening) event.Coroutine {
//	    return func(yield func(any, error) bool) {
//	        if !yield(nil, nil) { // suspend one tick
//	            return
//	        }
//	        yield(event.Deny(""), nil)
//	    }
//	}
type Coroutine = iter.Seq2[any, error]

// Kind execution strategy of a handler
type Kind int

const (
	KindSync Kind = iota
	KindDeferred
	KindAsync
	kindInfer
)

func (k Kind) String() string {
	switch k {
	case KindSync:
		return "sync"
	case KindDeferred:
		return "deferred"
	case KindAsync:
		return "async"
	}
	return "infer"
}

// Handler is a callable tagged with its execution kind
type Handler struct {
	kind Kind
	fn   any
}

// Sync runs fn in-line. Allowed returns: none, error, V, (V, error)
func Sync(fn any) Handler {
	return Handler{kind: KindSync, fn: fn}
}

// Deferred fn returns a Coroutine, optionally with an error
func Deferred(fn any) Handler {
	return Handler{kind: KindDeferred, fn: fn}
}

// Async fn returns a *Future, optionally with an error
func Async(fn any) Handler {
	return Handler{kind: KindAsync, fn: fn}
}

// Infer picks the kind from the declared return shape at registration
func Infer(fn any) Handler {
	return Handler{kind: kindInfer, fn: fn}
}

// Kind returns the declared kind
func (h Handler) Kind() Kind {
	return h.kind
}

// returnShape the declared results of a handler function
type returnShape int

const (
	shapeNone returnShape = iota
	shapeErr
	shapeValue
	shapeValueErr
	shapeCoroutine
	shapeCoroutineErr
	shapeFuture
	shapeFutureErr
)

var (
	errorType     = reflect.TypeFor[error]()
	coroutineType = reflect.TypeFor[Coroutine]()
	futureType    = reflect.TypeFor[*Future]()
)

// classify maps a function's results onto a shape, false when unsupported
func classify(fnType reflect.Type) (returnShape, bool) {
	switch fnType.NumOut() {
	case 0:
		return shapeNone, true
	case 1:
		out := fnType.Out(0)
		switch {
		case out == errorType:
			return shapeErr, true
		case isCoroutine(out):
			return shapeCoroutine, true
		case out == futureType:
			return shapeFuture, true
		}
		return shapeValue, true
	case 2:
		if fnType.Out(1) != errorType {
			return 0, false
		}
		switch out := fnType.Out(0); {
		case isCoroutine(out):
			return shapeCoroutineErr, true
		case out == futureType:
			return shapeFutureErr, true
		case out == errorType:
			return 0, false
		}
		return shapeValueErr, true
	}
	return 0, false
}

func isCoroutine(t reflect.Type) bool {
	return t.Kind() == reflect.Func && t.AssignableTo(coroutineType)
}

// resolveKind checks the shape against the requested kind
func resolveKind(requested Kind, shape returnShape) (Kind, bool) {
	var natural Kind
	switch shape {
	case shapeCoroutine, shapeCoroutineErr:
		natural = KindDeferred
	case shapeFuture, shapeFutureErr:
		natural = KindAsync
	default:
		natural = KindSync
	}
	if requested == kindInfer {
		return natural, true
	}
	return requested, requested == natural
}

// funcName runtime name of a function without the package path
// "github.com/x/app/hooks.(*Guard).OnOpen-fm" -> "hooks.(*Guard).OnOpen"
func funcName(fn reflect.Value) string {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return "unknown"
	}
	name := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

var closureName = regexp.MustCompile(`\.func\d+(\.\d+)*$`)

// isClosure reports whether fn is a function literal rather than a declared function or method value
func isClosure(fn reflect.Value) bool {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return true
	}
	return closureName.MatchString(f.Name())
}
