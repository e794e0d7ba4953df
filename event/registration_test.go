package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistration_Binders(t *testing.T) {
	tests := []struct {
		name   string
		desc   Descriptor
		binder BinderKind
		ctx    bool
	}{
		{
			name:   "no args",
			desc:   Descriptor{Event: (*doorOpening)(nil), Handler: Sync(func() {})},
			binder: BindNoArgs,
		},
		{
			name:   "whole event",
			desc:   Descriptor{Event: (*doorOpening)(nil), Handler: Sync(func(*doorOpening) {})},
			binder: BindWholeEvent,
		},
		{
			name:   "whole event as interface",
			desc:   Descriptor{Event: (*doorOpening)(nil), Handler: Sync(func(Event) {})},
			binder: BindWholeEvent,
		},
		{
			name:   "context only",
			desc:   Descriptor{Event: (*doorOpening)(nil), Handler: Sync(func(context.Context) {})},
			binder: BindNoArgs,
			ctx:    true,
		},
		{
			name: "field projection",
			desc: Descriptor{
				Event:   (*doorOpening)(nil),
				Handler: Sync(func(ctx context.Context, door, actor string) {}),
				Params:  []string{"door", "ACTOR"},
			},
			binder: BindFields,
			ctx:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.desc.Name = tt.name
			reg, err := newRegistration(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.binder, reg.Binder())
			assert.Equal(t, tt.ctx, reg.binder.withCtx)
			assert.Equal(t, typeDoorOpening, reg.EventType())
			assert.NotEmpty(t, reg.ID())
		})
	}
}

func TestNewRegistration_BinderErrors(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
	}{
		{"wrong event type", Descriptor{Event: (*doorOpening)(nil), Handler: Sync(func(*tick) {})}},
		{"missing param names", Descriptor{Event: (*doorOpening)(nil), Handler: Sync(func(a, b string) {})}},
		{"unknown field", Descriptor{
			Event: (*doorOpening)(nil), Handler: Sync(func(a, b string) {}), Params: []string{"door", "window"},
		}},
		{"field type mismatch", Descriptor{
			Event: (*doorOpening)(nil), Handler: Sync(func(a string, b string) {}), Params: []string{"door", "force"},
		}},
		{"variadic", Descriptor{Event: (*doorOpening)(nil), Handler: Sync(func(...string) {})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.desc.Name = tt.name
			_, err := newRegistration(tt.desc)
			assert.ErrorIs(t, err, ErrUnresolvableBinder)
		})
	}
}

func TestNewRegistration_Kinds(t *testing.T) {
	tests := []struct {
		name string
		h    Handler
		kind Kind
		err  error
	}{
		{"infer sync", Infer(func(*doorOpening) error { return nil }), KindSync, nil},
		{"infer decision", Infer(func(*doorOpening) Decision[string] { return Deny("") }), KindSync, nil},
		{"infer deferred", Infer(forever), KindDeferred, nil},
		{"infer async", Infer(func(*doorOpening) (*Future, error) { return Resolved(nil), nil }), KindAsync, nil},
		{"explicit deferred", Deferred(forever), KindDeferred, nil},
		{"deferred without coroutine", Deferred(func(*doorOpening) error { return nil }), 0, ErrUnresolvableExecutor},
		{"async without future", Async(func(*doorOpening) {}), 0, ErrUnresolvableExecutor},
		{"sync returning coroutine", Sync(forever), 0, ErrUnresolvableExecutor},
		{"second result not error", Sync(func() (int, int) { return 0, 0 }), 0, ErrUnresolvableExecutor},
		{"three results", Sync(func() (int, int, error) { return 0, 0, nil }), 0, ErrUnresolvableExecutor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := newRegistration(Descriptor{Event: (*doorOpening)(nil), Handler: tt.h, Name: tt.name})
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, reg.Kind())
		})
	}
}

type emptyTypeEvent struct{}

func (emptyTypeEvent) EventType() Type { return "" }

type readsReceiver struct{ name string }

func (e *readsReceiver) EventType() Type { return Type(e.name) }

func TestNewRegistration_InvalidDescriptors(t *testing.T) {
	_, err := newRegistration(Descriptor{Handler: Sync(func() {})})
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = newRegistration(Descriptor{Event: emptyTypeEvent{}, Handler: Sync(func() {})})
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = newRegistration(Descriptor{Event: (*readsReceiver)(nil), Handler: Sync(func() {})})
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = newRegistration(Descriptor{Event: (*tick)(nil), Handler: Sync("not a func")})
	assert.ErrorIs(t, err, ErrInvalidHandler)

	_, err = newRegistration(Descriptor{Event: (*tick)(nil), Handler: Sync(func() {}), Owner: []string{"x"}})
	assert.ErrorIs(t, err, ErrOwnerNotComparable)

	_, err = newRegistration(Descriptor{Event: (*tick)(nil), Handler: Sync(func() {}), Priority: Priority(7)})
	assert.ErrorIs(t, err, ErrInvalidHandler)
}

func TestNewRegistration_DefaultName(t *testing.T) {
	reg, err := newRegistration(Descriptor{Event: (*doorOpening)(nil), Handler: Deferred(forever)})
	require.NoError(t, err)
	assert.Equal(t, "event.forever", reg.Name())

	reg, err = newRegistration(Descriptor{Event: (*doorOpening)(nil), Handler: Deferred(forever), Name: "slow"})
	require.NoError(t, err)
	assert.Equal(t, "slow", reg.Name())
}

func TestBinder_ProjectsFields(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var gotDoor, gotActor string
	var gotForce int
	_, err := On[*doorOpening](context.Background(), d, func(door string, actor string, force int) {
		gotDoor, gotActor, gotForce = door, actor, force
	}, WithParams("Door", "actor", "FORCE"), WithName("projector"))
	require.NoError(t, err)

	d.Run(context.Background(), &doorOpening{Door: "north", Actor: "guard", Force: 3})

	assert.Equal(t, "north", gotDoor)
	assert.Equal(t, "guard", gotActor)
	assert.Equal(t, 3, gotForce)
}

func TestBinder_ProjectsSingleField(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got int
	reg, err := On[*doorOpening](context.Background(), d, func(force int) { got = force },
		WithParams("Force"), WithName("force"))
	require.NoError(t, err)
	assert.Equal(t, BindFields, reg.Binder())

	d.Run(context.Background(), &doorOpening{Force: 4})
	assert.Equal(t, 4, got)

	_, err = newRegistration(Descriptor{
		Event: (*doorOpening)(nil), Handler: Sync(func(int) {}), Params: []string{"window"}, Name: "window",
	})
	assert.ErrorIs(t, err, ErrUnresolvableBinder)
}

func TestInvoke_RejectsForeignEvent(t *testing.T) {
	reg, err := newRegistration(Descriptor{Event: (*doorOpening)(nil), Handler: Sync(func(*doorOpening) {}), Name: "door"})
	require.NoError(t, err)

	_, err = invoke(context.Background(), &tick{}, reg)
	assert.True(t, errors.Is(err, ErrInvalidHandler))
}
