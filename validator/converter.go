// Package validator converts ozzo-validation results into layered errors
package validator

import (
	"errors"

	"github.com/KOMKZ/go-yogan-hooks/errcode"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrValidationFailed generic validation error (module 10 "common")
var ErrValidationFailed = errcode.Register(errcode.New(10, 1010, "common",
	"error.common.validation_failed", "validation failed"))

// Validatable is implemented by validated configs
type Validatable interface {
	Validate() error
}

// Validate runs v.Validate and converts the result with ErrValidationFailed
func Validate(v Validatable) error {
	return Convert(v.Validate(), ErrValidationFailed)
}

// Convert turns ozzo field errors into base carrying a "fields" map
// Other errors are wrapped by base; nil stays nil
func Convert(err error, base *errcode.LayeredError) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return base.Wrap(err)
	}

	fields := make(map[string]string, len(fieldErrs))
	flatten("", fieldErrs, fields)
	return base.WithData("fields", fields)
}

// flatten nested errors (slices of structs) into "overrides.0.pattern" keys
func flatten(prefix string, errs validation.Errors, out map[string]string) {
	for field, fieldErr := range errs {
		if fieldErr == nil {
			continue
		}
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		var nested validation.Errors
		if errors.As(fieldErr, &nested) {
			flatten(key, nested, out)
			continue
		}
		out[key] = fieldErr.Error()
	}
}
