package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hookSection struct {
	PoolSize       int           `mapstructure:"pool_size"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	ForceWait      bool          `mapstructure:"force_wait"`
	Overrides      []struct {
		Pattern  string `mapstructure:"pattern"`
		Priority string `mapstructure:"priority"`
	} `mapstructure:"overrides"`
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoaderBuilder_FilesAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
hook:
  pool_size: 8
  default_timeout: 2s
  overrides:
    - pattern: "audit.*"
      priority: lowest
`)
	writeFile(t, dir, "test.yaml", `
hook:
  default_timeout: 500ms
`)
	t.Setenv("APP_ENV", "test")
	t.Setenv("HOOKTEST_HOOK_FORCE", "ignored-by-struct")

	loader, err := NewLoaderBuilder().WithConfigPath(dir).WithEnvPrefix("HOOKTEST").Build()
	require.NoError(t, err)

	var cfg hookSection
	require.NoError(t, loader.Unmarshal("hook", &cfg))

	assert.Equal(t, 8, cfg.PoolSize)
	assert.Equal(t, 500*time.Millisecond, cfg.DefaultTimeout)
	require.Len(t, cfg.Overrides, 1)
	assert.Equal(t, "audit.*", cfg.Overrides[0].Pattern)
	assert.Len(t, loader.GetLoadedFiles(), 2)
	assert.Equal(t, "ignored-by-struct", loader.GetString("hook.force"))
}

func TestLoaderBuilder_MissingFilesAreEmpty(t *testing.T) {
	loader, err := NewLoaderBuilder().WithConfigPath(t.TempDir()).Build()
	require.NoError(t, err)
	assert.Empty(t, loader.GetLoadedFiles())
	assert.False(t, loader.IsSet("hook.pool_size"))
}

func TestLoaderBuilder_FlagsOverrideFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "hook:\n  pool_size: 8\n  force_wait: false\n")
	t.Setenv("APP_ENV", "none")

	fs := pflag.NewFlagSet("demo", pflag.ContinueOnError)
	fs.Int("pool-size", 4, "")
	fs.Bool("force-wait", false, "")
	fs.Duration("timeout", time.Second, "")
	require.NoError(t, fs.Parse([]string{"--force-wait", "--timeout=3s"}))

	loader, err := NewLoaderBuilder().
		WithConfigPath(dir).
		WithFlags(fs, map[string]string{
			"pool-size":  "hook.pool_size",
			"force-wait": "hook.force_wait",
			"timeout":    "hook.default_timeout",
		}).
		Build()
	require.NoError(t, err)

	var cfg hookSection
	require.NoError(t, loader.Unmarshal("hook", &cfg))
	assert.Equal(t, 8, cfg.PoolSize, "unchanged flag keeps the file value")
	assert.True(t, cfg.ForceWait)
	assert.Equal(t, 3*time.Second, cfg.DefaultTimeout)
}

func TestEnvSource_Bindings(t *testing.T) {
	t.Setenv("HOOKS_HOOK_DEFAULT_TIMEOUT", "750ms")

	src := NewEnvSource("HOOKS", PriorityEnv)
	src.AddBinding("hook.default_timeout", "HOOK_DEFAULT_TIMEOUT")
	data, err := src.Load()
	require.NoError(t, err)
	assert.Equal(t, "750ms", data["hook.default_timeout"])
	assert.Equal(t, "env:HOOKS", src.Name())
}

func TestEnvSource_ScanSegments(t *testing.T) {
	t.Setenv("HOOKS_HOOK__POOL_SIZE", "16")
	t.Setenv("HOOKS_TELEMETRY_ENABLED", "true")
	t.Setenv("HOOKS_HOOK__TICK_INTERVAL", "")
	t.Setenv("HOOKS_HOOK_FORCE_WAIT", "scanned")
	t.Setenv("HOOKS_FORCE", "bound")

	src := NewEnvSource("HOOKS", PriorityEnv)
	src.AddBinding("hook.force_wait", "FORCE")
	data, err := src.Load()
	require.NoError(t, err)

	assert.Equal(t, "16", data["hook.pool_size"])
	assert.Equal(t, "true", data["telemetry.enabled"])
	assert.Equal(t, "bound", data["hook.force_wait"])
	assert.NotContains(t, data, "hook.tick_interval")
}

func TestFileSource_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "hook: [unclosed")

	_, err := NewFileSource(filepath.Join(dir, "broken.yaml"), PriorityConfigFile).Load()
	assert.Error(t, err)
}

func TestFlattenAndUnflatten(t *testing.T) {
	flat := flattenMap("", map[string]interface{}{
		"hook": map[string]interface{}{
			"pool_size": 4,
			"metrics":   map[string]interface{}{"enabled": true},
		},
	})
	assert.Equal(t, 4, flat["hook.pool_size"])
	assert.Equal(t, true, flat["hook.metrics.enabled"])

	nested := unflattenMap(flat)
	hook := nested["hook"].(map[string]interface{})
	assert.Equal(t, 4, hook["pool_size"])

	assert.Equal(t, []string{"a", "b"}, splitKey("a..b."))
}

func TestLoader_PriorityOrder(t *testing.T) {
	loader := NewLoader()
	loader.AddSource(staticSource{name: "high", priority: 50, data: map[string]interface{}{"hook.pool_size": 16}})
	loader.AddSource(staticSource{name: "low", priority: 10, data: map[string]interface{}{"hook.pool_size": 2, "hook.enabled": true}})
	require.NoError(t, loader.Load())

	assert.Equal(t, 16, loader.GetInt("hook.pool_size"))
	assert.True(t, loader.GetBool("hook.enabled"))
}

type staticSource struct {
	name     string
	priority int
	data     map[string]interface{}
}

func (s staticSource) Name() string                          { return s.name }
func (s staticSource) Priority() int                         { return s.priority }
func (s staticSource) Load() (map[string]interface{}, error) { return s.data, nil }
