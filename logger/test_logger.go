package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestCtxLogger records entries in memory for unit tests
//
//	testLogger := logger.NewTestCtxLogger()
//	d, _ := event.NewDispatcher(event.WithLogger(testLogger.Logger()))
//	d.Run(ctx, ev)
//	assert.True(t, testLogger.HasLog("warn", "handler timed out"))
type TestCtxLogger struct {
	logger *CtxZapLogger
	logs   *observer.ObservedLogs
}

// NewTestCtxLogger records every level from debug up
func NewTestCtxLogger() *TestCtxLogger {
	core, logs := observer.New(zapcore.DebugLevel)
	return &TestCtxLogger{
		logger: FromZap("test", zap.New(core)),
		logs:   logs,
	}
}

// Logger returns the CtxZapLogger writing into the recorder
func (t *TestCtxLogger) Logger() *CtxZapLogger {
	return t.logger
}

// HasLog checks whether an entry with level and message exists
// level is the lowercase zap level name ("debug", "info", "warn", "error")
func (t *TestCtxLogger) HasLog(level, message string) bool {
	for _, entry := range t.logs.All() {
		if entry.Level.String() == level && entry.Message == message {
			return true
		}
	}
	return false
}

// HasLogWithField checks level, message and one field value
func (t *TestCtxLogger) HasLogWithField(level, message, fieldKey string, fieldValue interface{}) bool {
	for _, entry := range t.logs.All() {
		if entry.Level.String() != level || entry.Message != message {
			continue
		}
		if val, ok := entry.ContextMap()[fieldKey]; ok && val == fieldValue {
			return true
		}
	}
	return false
}

// CountLogs counts entries at level
func (t *TestCtxLogger) CountLogs(level string) int {
	count := 0
	for _, entry := range t.logs.All() {
		if entry.Level.String() == level {
			count++
		}
	}
	return count
}

// Logs returns a copy of every entry
func (t *TestCtxLogger) Logs() []observer.LoggedEntry {
	return t.logs.All()
}

// Clear drops recorded entries
func (t *TestCtxLogger) Clear() {
	t.logs.TakeAll()
}
