package config

// ConfigSource a configuration data source (file, environment, flags)
type ConfigSource interface {
	// Name is used in error messages
	Name() string

	// Priority higher values override lower ones
	Priority() int

	// Load returns values keyed by dot-separated paths, e.g. "hook.pool_size"
	Load() (map[string]interface{}, error)
}
