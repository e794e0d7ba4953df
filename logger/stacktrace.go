package logger

import (
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
)

// noisyFrames runtime plumbing and the reflective handler call in between user frames
var noisyFrames = []string{"runtime.", "reflect."}

// CaptureStacktrace renders up to depth caller frames (0 means 32), skipping the first skip
// Each frame is "function\n\tfile:line"; runtime and reflect frames are left out
func CaptureStacktrace(skip int, depth int) string {
	if depth <= 0 {
		depth = 32
	}

	// room for the frames that get filtered out
	pcs := make([]uintptr, depth*2)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	kept := 0
	for kept < depth {
		frame, more := frames.Next()
		if frame.Function != "" && !isNoisyFrame(frame.Function) {
			if kept > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(frame.Function)
			sb.WriteString("\n\t")
			sb.WriteString(frame.File)
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(frame.Line))
			kept++
		}
		if !more {
			break
		}
	}
	return sb.String()
}

func isNoisyFrame(function string) bool {
	for _, prefix := range noisyFrames {
		if strings.HasPrefix(function, prefix) {
			return true
		}
	}
	return false
}

func shouldCaptureStacktrace(level zapcore.Level, cfg ManagerConfig) bool {
	return cfg.EnableStacktrace && level >= ParseLevel(cfg.StacktraceLevel)
}
