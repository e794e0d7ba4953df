// Package errcode provides hierarchical error codes shared by the hook engine packages
// Error code format: MMBBBB (MM = module code, BBBB = business code)
package errcode

import (
	"fmt"
	"sort"
	"strings"
)

// LayeredError hierarchical error code
// Supports error chaining, dynamic messages and context data for log fields
type LayeredError struct {
	module string                 // Module name (hook, bridge, scheduler)
	code   int                    // Complete error code (MMBBBB, e.g., 200001)
	msgKey string                 // Message key, e.g. "error.hook.duplicate_handler"
	msg    string                 // Default message
	data   map[string]interface{} // context data
	cause  error                  // Original error (error chain)
}

// New creates a layered error
// moduleCode: module code (10-99)
// businessCode: business code (0001-9999)
func New(moduleCode, businessCode int, module, msgKey, msg string) *LayeredError {
	return &LayeredError{
		module: module,
		code:   moduleCode*10000 + businessCode,
		msgKey: msgKey,
		msg:    msg,
		data:   make(map[string]interface{}),
	}
}

// Error implements the error interface
// Context data is rendered in key order so log lines stay stable
func (e *LayeredError) Error() string {
	var b strings.Builder
	b.WriteString(e.msg)
	if len(e.data) > 0 {
		keys := make([]string, 0, len(e.data))
		for k := range e.data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.data[k])
		}
		b.WriteString(")")
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Code returns the error code
func (e *LayeredError) Code() int {
	return e.code
}

// Module returns the module name
func (e *LayeredError) Module() string {
	return e.module
}

// MsgKey returns the message key
func (e *LayeredError) MsgKey() string {
	return e.msgKey
}

// Message returns the message without data or cause
func (e *LayeredError) Message() string {
	return e.msg
}

// Data returns the context data
func (e *LayeredError) Data() map[string]interface{} {
	return e.data
}

// Unwrap supports errors.Is / errors.As on the cause chain
func (e *LayeredError) Unwrap() error {
	return e.cause
}

// WithMsgf replaces the message (returns a new instance)
func (e *LayeredError) WithMsgf(format string, args ...interface{}) *LayeredError {
	clone := *e
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// WithData adds one context value (returns a new instance)
func (e *LayeredError) WithData(key string, value interface{}) *LayeredError {
	clone := *e
	clone.data = e.cloneData()
	clone.data[key] = value
	return &clone
}

// Wrap attaches the original error (returns a new instance)
func (e *LayeredError) Wrap(cause error) *LayeredError {
	if cause == nil {
		return e
	}
	clone := *e
	clone.cause = cause
	return &clone
}

// Is compares by code, so derived instances still match their sentinel
func (e *LayeredError) Is(target error) bool {
	t, ok := target.(*LayeredError)
	if !ok {
		return false
	}
	return e.code == t.code
}

func (e *LayeredError) cloneData() map[string]interface{} {
	data := make(map[string]interface{}, len(e.data)+1)
	for k, v := range e.data {
		data[k] = v
	}
	return data
}

// String returns a debug representation
func (e *LayeredError) String() string {
	if e.cause != nil {
		return fmt.Sprintf("LayeredError{code:%d, module:%s, msg:%s, cause:%v}",
			e.code, e.module, e.msg, e.cause)
	}
	return fmt.Sprintf("LayeredError{code:%d, module:%s, msg:%s}", e.code, e.module, e.msg)
}
