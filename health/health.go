// Package health aggregates component health checkers into one report
package health

import (
	"time"

	"github.com/KOMKZ/go-yogan-hooks/component"
)

// Status overall or per-check health
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded" // an optional checker failed
	StatusUnhealthy Status = "unhealthy"
)

// Checker alias of component.HealthChecker
type Checker = component.HealthChecker

// CheckResult one checker's result
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Optional  bool          `json:"optional,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Response aggregated report
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Checks    map[string]CheckResult `json:"checks"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}

func (r *Response) IsDegraded() bool {
	return r.Status == StatusDegraded
}
