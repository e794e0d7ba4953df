package component

import "go.opentelemetry.io/otel/metric"

// MetricsProvider is implemented by components that create otel instruments
// on a meter handed to them by the host (see event.HookMetrics)
type MetricsProvider interface {
	// MetricsName short lowercase group name, used as the meter name
	MetricsName() string

	// RegisterMetrics creates the instruments; a second call is a no-op
	RegisterMetrics(meter metric.Meter) error

	IsMetricsEnabled() bool
}
