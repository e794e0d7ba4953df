package telemetry

import (
	"time"

	"github.com/KOMKZ/go-yogan-hooks/validator"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ConfigKey section read by the component
const ConfigKey = "telemetry"

// Config OpenTelemetry settings
//
//	telemetry:
//	  enabled: true
//	  service_name: door-service
//	  exporter:
//	    type: otlp
//	    endpoint: localhost:4317
//	    insecure: true
//	  metrics:
//	    enabled: true
//	    export_interval: 10s
type Config struct {
	Enabled        bool                   `mapstructure:"enabled"`
	ServiceName    string                 `mapstructure:"service_name"`
	ServiceVersion string                 `mapstructure:"service_version"`
	Exporter       ExporterConfig         `mapstructure:"exporter"`
	Sampler        SamplerConfig          `mapstructure:"sampler"`
	ResourceAttrs  map[string]interface{} `mapstructure:"resource_attributes"` // nested maps are flattened with dots
	Batch          BatchConfig            `mapstructure:"batch"`
	Metrics        MetricsConfig          `mapstructure:"metrics"`
}

// ExporterConfig exporter shared by traces and metrics
type ExporterConfig struct {
	Type     string            `mapstructure:"type"` // otlp, stdout, noop
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	Headers  map[string]string `mapstructure:"headers"`
}

// SamplerConfig trace sampling
type SamplerConfig struct {
	Type  string  `mapstructure:"type"`  // always_on, always_off, trace_id_ratio, parent_based_always_on
	Ratio float64 `mapstructure:"ratio"` // trace_id_ratio only
}

// BatchConfig span batching; disabled exports every span synchronously
type BatchConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	ScheduleDelay time.Duration `mapstructure:"schedule_delay"`
	ExportTimeout time.Duration `mapstructure:"export_timeout"`
}

// MetricsConfig periodic metric export
type MetricsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

// DefaultConfig telemetry is off unless configured
func DefaultConfig() Config {
	return Config{
		ServiceName:    "yogan-hooks",
		ServiceVersion: "0.0.1",
		Exporter: ExporterConfig{
			Type:     "otlp",
			Endpoint: "localhost:4317",
			Insecure: true,
			Timeout:  10 * time.Second,
		},
		Sampler: SamplerConfig{Type: "parent_based_always_on", Ratio: 1},
		Batch: BatchConfig{
			Enabled:       true,
			ScheduleDelay: 5 * time.Second,
			ExportTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{ExportInterval: 10 * time.Second},
	}
}

// ApplyDefaults fills zero-valued fields, booleans keep their configured value
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ServiceName == "" {
		c.ServiceName = d.ServiceName
	}
	if c.Exporter.Type == "" {
		c.Exporter.Type = d.Exporter.Type
	}
	if c.Exporter.Timeout == 0 {
		c.Exporter.Timeout = d.Exporter.Timeout
	}
	if c.Sampler.Type == "" {
		c.Sampler = d.Sampler
	}
	if c.Batch.ScheduleDelay == 0 {
		c.Batch.ScheduleDelay = d.Batch.ScheduleDelay
	}
	if c.Batch.ExportTimeout == 0 {
		c.Batch.ExportTimeout = d.Batch.ExportTimeout
	}
	if c.Metrics.ExportInterval == 0 {
		c.Metrics.ExportInterval = d.Metrics.ExportInterval
	}
}

// Validate returns an ErrInvalidConfig carrying per-field messages
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	err := validation.ValidateStruct(&c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.Exporter),
		validation.Field(&c.Sampler),
	)
	return validator.Convert(err, ErrInvalidConfig)
}

func (e ExporterConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required, validation.In("otlp", "stdout", "noop")),
		validation.Field(&e.Endpoint, validation.When(e.Type == "otlp", validation.Required)),
	)
}

func (s SamplerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Type, validation.In("always_on", "always_off", "trace_id_ratio", "parent_based_always_on")),
		validation.Field(&s.Ratio, validation.When(s.Type == "trace_id_ratio", validation.Min(0.0), validation.Max(1.0))),
	)
}
