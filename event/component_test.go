package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-hooks/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// mapLoader is a component.ConfigLoader over a fixed hook section
type mapLoader struct {
	hook *Config
	err  error
}

func (l mapLoader) Get(string) interface{}  { return nil }
func (l mapLoader) GetString(string) string { return "" }
func (l mapLoader) GetInt(string) int       { return 0 }
func (l mapLoader) GetBool(string) bool     { return false }
func (l mapLoader) IsSet(key string) bool   { return key == ConfigKey && (l.hook != nil || l.err != nil) }
func (l mapLoader) Unmarshal(key string, v interface{}) error {
	if l.err != nil {
		return l.err
	}
	*(v.(*Config)) = *l.hook
	return nil
}

var _ component.ConfigLoader = mapLoader{}

func TestComponent_Lifecycle(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	c := NewComponent()
	c.SetMeter(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("hook"))

	cfg := DefaultConfig()
	cfg.DefaultTimeout = 500 * time.Millisecond
	cfg.Overrides = []Override{{Pattern: "disabled.*", Disabled: true}}
	ctx := context.Background()

	require.NoError(t, c.Init(ctx, mapLoader{hook: &cfg}))
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, component.ComponentHook, c.Name())
	assert.Contains(t, c.DependsOn(), component.ComponentLogger)
	assert.True(t, c.IsEnabled())
	assert.True(t, c.GetMetrics().IsRegistered())

	d := c.GetDispatcher()
	_, err := On[*tick](ctx, d, func(*tick) {}, WithName("disabled.one"))
	assert.ErrorIs(t, err, ErrHandlerDisabled)

	checker := c.GetHealthChecker()
	assert.Equal(t, "hook", checker.Name())
	assert.NoError(t, checker.Check(ctx))

	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))
	assert.ErrorIs(t, checker.Check(ctx), ErrDispatcherClosed)
}

func TestComponent_DefaultsWithoutSection(t *testing.T) {
	c := NewComponent()
	require.NoError(t, c.Init(context.Background(), mapLoader{}))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	assert.Equal(t, DefaultConfig().PoolSize, c.config.PoolSize)
	assert.NotNil(t, c.GetDispatcher())
}

func TestComponent_Disabled(t *testing.T) {
	cfg := Config{Enabled: false}
	c := NewComponent()
	require.NoError(t, c.Init(context.Background(), mapLoader{hook: &cfg}))

	assert.False(t, c.IsEnabled())
	assert.Nil(t, c.GetDispatcher())
	assert.NoError(t, c.GetHealthChecker().Check(context.Background()))
	assert.NoError(t, c.Stop(context.Background()))
}

func TestComponent_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = time.Hour
	err := NewComponent().Init(context.Background(), mapLoader{hook: &cfg})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	err = NewComponent().Init(context.Background(), mapLoader{err: errors.New("decode")})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
