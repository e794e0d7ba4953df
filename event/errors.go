package event

import "github.com/KOMKZ/go-yogan-hooks/errcode"

// ModuleCode hook engine error code prefix (20xxxx)
const ModuleCode = 20

const moduleName = "hook"

// Registration errors: the registration is rejected and the registry is unchanged
var (
	ErrDuplicateHandler = errcode.Register(errcode.New(ModuleCode, 1, moduleName,
		"error.hook.duplicate_handler", "handler already registered for event type"))
	ErrUnresolvableBinder = errcode.Register(errcode.New(ModuleCode, 2, moduleName,
		"error.hook.unresolvable_binder", "cannot bind handler parameters to event"))
	ErrUnresolvableExecutor = errcode.Register(errcode.New(ModuleCode, 3, moduleName,
		"error.hook.unresolvable_executor", "handler return shape does not match its kind"))
	ErrInvalidHandler = errcode.Register(errcode.New(ModuleCode, 4, moduleName,
		"error.hook.invalid_handler", "handler is not a function"))
	ErrOwnerNotComparable = errcode.Register(errcode.New(ModuleCode, 5, moduleName,
		"error.hook.owner_not_comparable", "handler owner must be comparable"))
	ErrUnknownEventType = errcode.Register(errcode.New(ModuleCode, 6, moduleName,
		"error.hook.unknown_event_type", "event type is empty or unknown"))
	ErrHandlerDisabled = errcode.Register(errcode.New(ModuleCode, 7, moduleName,
		"error.hook.handler_disabled", "handler disabled by configuration"))
)

// Runtime errors: recorded in outcomes and reports, never returned from Run
var (
	ErrHandlerPanic = errcode.Register(errcode.New(ModuleCode, 101, moduleName,
		"error.hook.handler_panic", "handler panicked"))
	ErrHandlerTimeout = errcode.Register(errcode.New(ModuleCode, 102, moduleName,
		"error.hook.handler_timeout", "handler timed out"))
	ErrDelegateFailed = errcode.Register(errcode.New(ModuleCode, 103, moduleName,
		"error.hook.delegate_failed", "legacy delegate failed"))
	ErrSchedulerStopped = errcode.Register(errcode.New(ModuleCode, 104, moduleName,
		"error.hook.scheduler_stopped", "coroutine scheduler stopped"))
	ErrDispatcherClosed = errcode.Register(errcode.New(ModuleCode, 105, moduleName,
		"error.hook.dispatcher_closed", "dispatcher closed"))
	ErrInvalidConfig = errcode.Register(errcode.New(ModuleCode, 201, moduleName,
		"error.hook.invalid_config", "invalid hook configuration"))
)
