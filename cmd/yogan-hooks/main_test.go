package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/KOMKZ/go-yogan-hooks/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
logger:
  enable_console: false
  enable_file: false
hook:
  enabled: true
  pool_size: 4
  default_timeout: 1s
  tick_interval: 5ms
  metrics:
    enabled: false
`

func TestMain(m *testing.M) {
	logger.InitManager(logger.ManagerConfig{Level: "info"})
	os.Exit(m.Run())
}

func configDir(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

// lockedBuffer is shared by handlers and the span batcher goroutine
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out lockedBuffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDemo_LockedDoorForcedOpen(t *testing.T) {
	out, err := execute(t, "demo", "-c", configDir(t, testConfig),
		"--door", "vault", "--actor", "ada", "--force", "3", "--tick", "1ms")
	require.NoError(t, err)

	assert.Contains(t, out, "door.opening completed")
	assert.Contains(t, out, `door vault: allow(forced) (decided by "door.force")`)
	assert.Contains(t, out, "welcome, ada")
	assert.Contains(t, out, "legacy delegate saw door.opening")
}

func TestDemo_LockedDoorStaysShut(t *testing.T) {
	out, err := execute(t, "demo", "-c", configDir(t, testConfig), "--door", "vault", "--times", "2")
	require.NoError(t, err)

	assert.Contains(t, out, `door vault: deny(locked) (decided by "door.lock")`)
	// the greeting is registered once
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("welcome, guest")))
}

func TestDemo_HookDisabled(t *testing.T) {
	_, err := execute(t, "demo", "-c", configDir(t, "hook:\n  enabled: false\nlogger:\n  enable_console: false\n  enable_file: false\n"))
	assert.ErrorContains(t, err, "disabled")
}

func TestHandlers_ListsOrder(t *testing.T) {
	out, err := execute(t, "handlers", "-c", configDir(t, testConfig))
	require.NoError(t, err)

	lock := bytes.Index([]byte(out), []byte("door.lock"))
	force := bytes.Index([]byte(out), []byte("door.force"))
	audit := bytes.Index([]byte(out), []byte("audit.door"))
	greeting := bytes.Index([]byte(out), []byte("door.greeting"))
	require.True(t, lock > 0 && force > 0 && audit > 0 && greeting > 0, out)
	assert.Less(t, lock, force)
	assert.Less(t, force, audit)
	assert.Less(t, audit, greeting)
	assert.Contains(t, out, "field")
}

func TestDemo_StdoutTelemetry(t *testing.T) {
	out, err := execute(t, "demo", "-c", configDir(t, testConfig), "--telemetry", "--exporter", "stdout")
	require.NoError(t, err)

	assert.Contains(t, out, "hook.dispatch")
	assert.Contains(t, out, "hook.handler")
}

func TestHealth_Report(t *testing.T) {
	out, err := execute(t, "health", "-c", configDir(t, testConfig))
	require.NoError(t, err)

	assert.Contains(t, out, `"status": "healthy"`)
	assert.Contains(t, out, `"hook"`)
	assert.Contains(t, out, `"telemetry"`)
}
