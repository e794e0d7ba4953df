package event

import (
	"context"
	"reflect"
	"strings"

	"github.com/KOMKZ/go-yogan-hooks/errcode"
)

// BinderKind how event values become call arguments
type BinderKind int

const (
	BindNoArgs BinderKind = iota
	BindWholeEvent
	BindFields
)

func (k BinderKind) String() string {
	switch k {
	case BindWholeEvent:
		return "whole_event"
	case BindFields:
		return "field_projection"
	}
	return "no_args"
}

var contextType = reflect.TypeFor[context.Context]()

// binder is resolved once per registration and never changes
type binder struct {
	kind    BinderKind
	withCtx bool
	fields  [][]int // field index path per projected parameter
	types   []reflect.Type
}

// resolveBinder matches fnType's parameters against eventType
// A leading context.Context is always allowed and does not count towards the arity
func resolveBinder(fnType, eventType reflect.Type, params []string) (*binder, *errcode.LayeredError) {
	if fnType.IsVariadic() {
		return nil, ErrUnresolvableBinder.WithMsgf("variadic handlers are not supported")
	}

	b := &binder{}
	in := make([]reflect.Type, 0, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		in = append(in, fnType.In(i))
	}
	if len(in) > 0 && in[0] == contextType {
		b.withCtx = true
		in = in[1:]
	}

	// one parameter is the whole event unless field names were given
	switch {
	case len(in) == 0:
		b.kind = BindNoArgs
		return b, nil
	case len(in) == 1 && len(params) == 0:
		if !eventType.AssignableTo(in[0]) {
			return nil, ErrUnresolvableBinder.
				WithData("param", in[0].String()).
				WithData("event", eventType.String())
		}
		b.kind = BindWholeEvent
		return b, nil
	}

	structType := eventType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, ErrUnresolvableBinder.WithMsgf("field projection needs a struct event, got %s", eventType)
	}
	if len(params) != len(in) {
		return nil, ErrUnresolvableBinder.WithMsgf(
			"field projection needs %d parameter names, got %d", len(in), len(params))
	}

	b.kind = BindFields
	for i, name := range params {
		field, ok := structType.FieldByNameFunc(func(n string) bool {
			return strings.EqualFold(n, name)
		})
		if !ok || !field.IsExported() {
			return nil, ErrUnresolvableBinder.WithMsgf("event %s has no field %q", eventType, name)
		}
		if !field.Type.AssignableTo(in[i]) {
			return nil, ErrUnresolvableBinder.WithMsgf(
				"field %s.%s is %s, parameter %q wants %s", structType.Name(), field.Name, field.Type, name, in[i])
		}
		b.fields = append(b.fields, field.Index)
		b.types = append(b.types, in[i])
	}
	return b, nil
}

// args builds the call arguments for one invocation
func (b *binder) args(ctx context.Context, ev Event) []reflect.Value {
	args := make([]reflect.Value, 0, len(b.fields)+2)
	if b.withCtx {
		args = append(args, reflect.ValueOf(&ctx).Elem())
	}

	switch b.kind {
	case BindWholeEvent:
		args = append(args, reflect.ValueOf(ev))
	case BindFields:
		v := reflect.ValueOf(ev)
		if v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		for i, idx := range b.fields {
			f, err := v.FieldByIndexErr(idx)
			if err != nil {
				// nil embedded pointer on the path
				args = append(args, reflect.Zero(b.types[i]))
				continue
			}
			args = append(args, f)
		}
	}
	return args
}
