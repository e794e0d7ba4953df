package logger

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromZap_ModuleAndTraceID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap("hook", zap.New(core))

	log.InfoCtx(spanContext(t), "dispatch started", zap.String("event", "door.opened"))
	log.Debug("no context")

	entries := logs.All()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, "hook", fields["module"])
	assert.Equal(t, "door.opened", fields["event"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.NotContains(t, entries[1].ContextMap(), "trace_id")
}

func TestCtxZapLogger_TraceIDFromContextKey(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := DefaultManagerConfig()
	cfg.TraceIDKey = "request_id"
	cfg.TraceIDFieldName = "rid"
	log := &CtxZapLogger{base: zap.New(core), module: "hook", config: &cfg}

	ctx := context.WithValue(context.Background(), "request_id", "req-42")
	log.InfoCtx(ctx, "with custom key")

	entry := logs.All()[0]
	assert.Equal(t, "req-42", entry.ContextMap()["rid"])
}

func TestCtxZapLogger_TraceIDDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := DefaultManagerConfig()
	cfg.EnableTraceID = false
	log := &CtxZapLogger{base: zap.New(core), module: "hook", config: &cfg}

	log.InfoCtx(spanContext(t), "no trace")

	assert.NotContains(t, logs.All()[0].ContextMap(), "trace_id")
}

func TestCtxZapLogger_ErrorStacktrace(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := DefaultManagerConfig()
	log := &CtxZapLogger{base: zap.New(core), module: "hook", config: &cfg}

	log.Error("handler failed")
	assert.Contains(t, logs.All()[0].ContextMap(), "stack")

	logs.TakeAll()
	cfg.EnableStacktrace = false
	log.Error("handler failed")
	assert.NotContains(t, logs.All()[0].ContextMap(), "stack")
}

func TestCtxZapLogger_With(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := FromZap("hook", zap.New(core))
	child := base.With(zap.String("event", "door.opened"))

	child.Warn("handler timed out")
	base.Warn("plain")

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "door.opened", all[0].ContextMap()["event"])
	assert.NotContains(t, all[1].ContextMap(), "event")
	assert.Equal(t, "hook", child.Module())
	assert.NotNil(t, child.GetZapLogger())
}

func TestCaptureStacktrace_Depth(t *testing.T) {
	stack := CaptureStacktrace(1, 2)
	assert.Contains(t, stack, "TestCaptureStacktrace_Depth")
	assert.LessOrEqual(t, strings.Count(stack, "\n\t"), 2)
}

func TestCaptureStacktrace_SkipsReflectFrames(t *testing.T) {
	var stack string
	handler := func() { stack = CaptureStacktrace(1, 4) }
	reflect.ValueOf(handler).Call(nil)

	assert.Contains(t, stack, "TestCaptureStacktrace_SkipsReflectFrames")
	assert.NotContains(t, stack, "reflect.Value.call")
}

func TestShouldCaptureStacktrace(t *testing.T) {
	cfg := ManagerConfig{EnableStacktrace: true, StacktraceLevel: "warn"}
	assert.True(t, shouldCaptureStacktrace(zap.ErrorLevel, cfg))
	assert.True(t, shouldCaptureStacktrace(zap.WarnLevel, cfg))
	assert.False(t, shouldCaptureStacktrace(zap.InfoLevel, cfg))

	cfg.EnableStacktrace = false
	assert.False(t, shouldCaptureStacktrace(zap.ErrorLevel, cfg))
}

func TestTestCtxLogger(t *testing.T) {
	tl := NewTestCtxLogger()
	log := tl.Logger()

	log.Info("registered", zap.String("handler", "h1"))
	log.Warn("priority demoted")
	log.Warn("priority demoted")

	assert.True(t, tl.HasLog("info", "registered"))
	assert.True(t, tl.HasLogWithField("info", "registered", "handler", "h1"))
	assert.False(t, tl.HasLogWithField("info", "registered", "handler", "h2"))
	assert.Equal(t, 2, tl.CountLogs("warn"))
	assert.Len(t, tl.Logs(), 3)

	tl.Clear()
	assert.Empty(t, tl.Logs())
}
