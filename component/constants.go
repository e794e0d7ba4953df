package component

// Component names
const (
	ComponentConfig    = "config"
	ComponentLogger    = "logger"
	ComponentTelemetry = "telemetry"
	ComponentHook      = "hook"
)
