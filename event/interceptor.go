package event

import "context"

// Next continues with the next interceptor, or the handler chain
type Next func(ctx context.Context, ev Event) error

// Interceptor wraps the handler chain of every dispatch (logging, filtering, tracing)
// Not calling next skips the chain; legacy delegates still run
type Interceptor func(ctx context.Context, ev Event, next Next) error

// buildChain wraps inner with interceptors, the first one registered runs outermost
func buildChain(interceptors []Interceptor, inner Next) Next {
	handler := inner
	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		next := handler
		handler = func(ctx context.Context, ev Event) error {
			return interceptor(ctx, ev, next)
		}
	}
	return handler
}
