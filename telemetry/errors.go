package telemetry

import "github.com/KOMKZ/go-yogan-hooks/errcode"

// ModuleCode telemetry error code prefix (21xxxx)
const ModuleCode = 21

var (
	ErrInvalidConfig = errcode.Register(errcode.New(ModuleCode, 1, "telemetry",
		"error.telemetry.invalid_config", "invalid telemetry configuration"))
	ErrExporter = errcode.Register(errcode.New(ModuleCode, 2, "telemetry",
		"error.telemetry.exporter", "cannot create telemetry exporter"))
)
