package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type entry struct {
	checker  Checker
	optional bool
}

// Aggregator runs every registered checker concurrently under one timeout
type Aggregator struct {
	mu       sync.RWMutex
	entries  []entry
	timeout  time.Duration
	metadata map[string]interface{}
}

// NewAggregator timeout <= 0 means 5s
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Aggregator{
		timeout:  timeout,
		metadata: make(map[string]interface{}),
	}
}

// Register adds a required checker; its failure makes the report unhealthy
func (a *Aggregator) Register(c Checker) {
	a.add(c, false)
}

// RegisterOptional adds a checker whose failure only degrades the report
func (a *Aggregator) RegisterOptional(c Checker) {
	a.add(c, true)
}

func (a *Aggregator) add(c Checker, optional bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry{checker: c, optional: optional})
}

// SetMetadata is copied into every response
func (a *Aggregator) SetMetadata(key string, value interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metadata[key] = value
}

// Check runs all checkers and computes the overall status
func (a *Aggregator) Check(ctx context.Context) *Response {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	a.mu.RLock()
	entries := append([]entry(nil), a.entries...)
	metadata := make(map[string]interface{}, len(a.metadata))
	for k, v := range a.metadata {
		metadata[k] = v
	}
	a.mu.RUnlock()

	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(entries))
		g      errgroup.Group
	)
	for _, e := range entries {
		g.Go(func() error {
			res := checkOne(ctx, e)
			mu.Lock()
			checks[res.Name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return &Response{
		Status:    overall(checks),
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		Checks:    checks,
		Metadata:  metadata,
	}
}

func checkOne(ctx context.Context, e entry) CheckResult {
	start := time.Now()
	res := CheckResult{
		Name:      e.checker.Name(),
		Status:    StatusHealthy,
		Optional:  e.optional,
		Timestamp: start,
	}
	err := e.checker.Check(ctx)
	res.Duration = time.Since(start)
	if err != nil {
		res.Status = StatusUnhealthy
		res.Error = err.Error()
	}
	return res
}

func overall(checks map[string]CheckResult) Status {
	status := StatusHealthy
	for _, res := range checks {
		if res.Status == StatusHealthy {
			continue
		}
		if !res.Optional {
			return StatusUnhealthy
		}
		status = StatusDegraded
	}
	return status
}
