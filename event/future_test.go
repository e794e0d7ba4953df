package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_SettlesOnce(t *testing.T) {
	f := NewFuture()
	v, err := f.Result()
	assert.Nil(t, v)
	assert.NoError(t, err)

	assert.True(t, f.Resolve(1))
	assert.False(t, f.Resolve(2))
	assert.False(t, f.Reject(errors.New("late")))

	v, err = f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFuture_WaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewFuture().Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGo(t *testing.T) {
	v, err := Go(context.Background(), func(context.Context) (any, error) { return "ok", nil }).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	_, err = Go(context.Background(), func(context.Context) (any, error) { return nil, errors.New("bad") }).Wait(context.Background())
	assert.EqualError(t, err, "bad")

	_, err = Go(context.Background(), func(context.Context) (any, error) { panic("boom") }).Wait(context.Background())
	assert.ErrorIs(t, err, ErrHandlerPanic)

	_, err = Rejected(errors.New("x")).Result()
	assert.Error(t, err)
	v, _ = Resolved(3).Result()
	assert.Equal(t, 3, v)
}
