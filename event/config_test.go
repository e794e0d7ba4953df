package event

import (
	"errors"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-hooks/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Enabled: true, PoolSize: 8}
	cfg.ApplyDefaults()

	assert.Equal(t, 8, cfg.PoolSize)
	assert.Equal(t, DefaultTimeout, cfg.DefaultTimeout)
	assert.Equal(t, DefaultTickInterval, cfg.TickInterval)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"pool too small", func(c *Config) { c.PoolSize = -1 }, "PoolSize"},
		{"timeout below a millisecond", func(c *Config) { c.DefaultTimeout = time.Microsecond }, "DefaultTimeout"},
		{"tick too slow", func(c *Config) { c.TickInterval = 2 * time.Second }, "TickInterval"},
		{"override without pattern", func(c *Config) {
			c.Overrides = []Override{{Pattern: "ok"}, {Priority: "highest"}}
		}, "Overrides.1.Pattern"},
		{"override with unknown priority", func(c *Config) {
			c.Overrides = []Override{{Pattern: "a", Priority: "urgent"}}
		}, "Overrides.0.Priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)

			var le *errcode.LayeredError
			require.True(t, errors.As(err, &le))
			fields, _ := le.Data()["fields"].(map[string]string)
			assert.Contains(t, fields, tt.field)
		})
	}
}
