package logger

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func fileOnlyConfig(dir string) ManagerConfig {
	return ManagerConfig{
		BaseLogDir:            dir,
		Level:                 "debug",
		Encoding:              "json",
		EnableFile:            true,
		EnableLevelInFilename: true,
		EnableTraceID:         true,
	}
}

func TestManagerConfig_ApplyDefaults(t *testing.T) {
	cfg := ManagerConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, "logs", cfg.BaseLogDir)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, 16, cfg.ModuleNumber)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, "error", cfg.StacktraceLevel)
	assert.Equal(t, "trace_id", cfg.TraceIDFieldName)

	// configured values survive
	cfg = ManagerConfig{Level: "warn", MaxSize: 5}
	cfg.ApplyDefaults()
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, 5, cfg.MaxSize)
}

func TestManagerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ManagerConfig)
		wantErr bool
	}{
		{"defaults", func(c *ManagerConfig) {}, false},
		{"bad level", func(c *ManagerConfig) { c.Level = "verbose" }, true},
		{"bad encoding", func(c *ManagerConfig) { c.Encoding = "xml" }, true},
		{"max size too large", func(c *ManagerConfig) { c.MaxSize = 20000 }, true},
		{"negative backups", func(c *ManagerConfig) { c.MaxBackups = -1 }, true},
		{"bad stack level", func(c *ManagerConfig) { c.StacktraceLevel = "trace" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultManagerConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("unknown"))
}

func TestManager_FileSplit(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(fileOnlyConfig(dir))

	log := m.GetLogger("hook")
	log.Info("dispatch started", zap.String("event", "door.opened"))
	log.Warn("handler timed out")
	log.Error("handler failed")
	m.CloseAll()

	info, err := os.ReadFile(filepath.Join(dir, "hook", "hook-info.log"))
	require.NoError(t, err)
	errLog, err := os.ReadFile(filepath.Join(dir, "hook", "hook-error.log"))
	require.NoError(t, err)

	assert.Contains(t, string(info), "dispatch started")
	assert.Contains(t, string(info), "handler timed out")
	assert.NotContains(t, string(info), "handler failed")
	assert.Contains(t, string(errLog), "handler failed")
	assert.Contains(t, string(info), `"module":"hook"`)
}

func TestManager_SameModuleReturnsSameLogger(t *testing.T) {
	m := NewManager(ManagerConfig{EnableConsole: false})
	a := m.GetLogger("scheduler")
	b := m.GetLogger("scheduler")
	c := m.GetLogger("bridge")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "bridge", c.Module())
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(ManagerConfig{})
	var wg sync.WaitGroup
	loggers := make([]*CtxZapLogger, 32)
	for i := range loggers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loggers[i] = m.GetLogger("hook")
		}(i)
	}
	wg.Wait()

	for _, l := range loggers {
		assert.Same(t, loggers[0], l)
	}
}

func TestManager_ReloadConfig(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(fileOnlyConfig(dir))
	before := m.GetLogger("hook")

	err := m.ReloadConfig(ManagerConfig{Level: "nope"})
	assert.Error(t, err)

	cfg := fileOnlyConfig(dir)
	cfg.Level = "error"
	require.NoError(t, m.ReloadConfig(cfg))
	assert.Equal(t, "error", m.Config().Level)

	after := m.GetLogger("hook")
	assert.NotSame(t, before, after)
	m.CloseAll()
}

func TestConfig_BuildFilePath(t *testing.T) {
	cfg := Config{moduleName: "hook", logDir: "logs", EnableLevelInFilename: true}
	assert.Equal(t, filepath.Join("logs", "hook", "hook-info.log"), cfg.buildFilePath("info"))

	cfg.EnableLevelInFilename = false
	assert.Equal(t, filepath.Join("logs", "hook", "hook.log"), cfg.buildFilePath("info"))
}
