package event

import (
	"time"

	"github.com/KOMKZ/go-yogan-hooks/validator"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ConfigKey section read by the component
const ConfigKey = "hook"

// Config hook engine settings
//
//	hook:
//	  pool_size: 64
//	  default_timeout: 2s
//	  tick_interval: 10ms
//	  overrides:
//	    - pattern: "audit.*"
//	      priority: lowest
//	      do_not_wait: true
type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	PoolSize       int           `mapstructure:"pool_size"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	ForceWait      bool          `mapstructure:"force_wait"` // ignore DoNotWait on every handler
	Metrics        MetricsConfig `mapstructure:"metrics"`
	Overrides      []Override    `mapstructure:"overrides"`
}

// MetricsConfig instrumentation switch
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		PoolSize:       100,
		DefaultTimeout: DefaultTimeout,
		TickInterval:   DefaultTickInterval,
		Metrics:        MetricsConfig{Enabled: true},
	}
}

// ApplyDefaults fills zero-valued numeric fields
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = defaults.DefaultTimeout
	}
	if c.TickInterval == 0 {
		c.TickInterval = defaults.TickInterval
	}
}

// Validate returns an ErrInvalidConfig carrying per-field messages
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.PoolSize, validation.Min(1), validation.Max(100000)),
		validation.Field(&c.DefaultTimeout, validation.Min(time.Millisecond)),
		validation.Field(&c.TickInterval, validation.Min(time.Millisecond), validation.Max(time.Second)),
		validation.Field(&c.Overrides),
	)
	return validator.Convert(err, ErrInvalidConfig)
}
