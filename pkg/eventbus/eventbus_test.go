package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event, err := NewEvent("alert.created", "patrol", map[string]string{"alert_id": "a-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "alert.created", event.Type)
	assert.Equal(t, "patrol", event.Source)
	assert.False(t, event.Timestamp.IsZero())
	assert.JSONEq(t, `{"alert_id":"a-1"}`, string(event.Data))
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("x", "patrol", make(chan int))
	assert.Error(t, err)
}

func TestDispatch(t *testing.T) {
	event, err := NewEvent("item.collected", "collector", map[string]string{"id": "p1"})
	require.NoError(t, err)
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	t.Run("delivers decoded event", func(t *testing.T) {
		var got *Event
		err := dispatch(context.Background(), raw, func(_ context.Context, e *Event) error {
			got = e
			return nil
		})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, event.ID, got.ID)
	})

	t.Run("propagates handler error", func(t *testing.T) {
		boom := errors.New("boom")
		err := dispatch(context.Background(), raw, func(context.Context, *Event) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("drops malformed payload", func(t *testing.T) {
		called := false
		err := dispatch(context.Background(), []byte("{not json"), func(context.Context, *Event) error {
			called = true
			return nil
		})
		assert.NoError(t, err)
		assert.False(t, called)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("nats://localhost:4222", "patrol")
	assert.Equal(t, "PATROL", cfg.StreamName)
	assert.Equal(t, []string{"patrol.>"}, cfg.Subjects)
}
