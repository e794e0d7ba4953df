// Package component defines the lifecycle contract shared by framework components
// It imports no other package of the module
package component

import "context"

// Component lifecycle: Init → Start → Stop
type Component interface {
	// Name unique component name, used in DependsOn declarations
	Name() string

	// DependsOn names required components; an "optional:" prefix marks a soft dependency
	//
	//   return []string{
	//       "config",
	//       "logger",
	//       "optional:telemetry",
	//   }
	DependsOn() []string

	// Init reads configuration through loader and creates resources; no background work yet
	Init(ctx context.Context, loader ConfigLoader) error

	// Start begins background work
	Start(ctx context.Context) error

	// Stop releases resources; must be safe to call more than once
	Stop(ctx context.Context) error
}

// HealthChecker reports the health of one component
type HealthChecker interface {
	// Check returns nil when healthy
	Check(ctx context.Context) error

	Name() string
}

// HealthCheckProvider is implemented by components exposing a HealthChecker
type HealthCheckProvider interface {
	GetHealthChecker() HealthChecker
}
