package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestMemoryBrokerFanOut(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()
	ctx := context.Background()

	first, err := b.Subscribe(ctx, "appointments")
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, "appointments")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "appointments", map[string]int{"n": 1}))

	for _, ch := range []<-chan []byte{first, second} {
		var got map[string]int
		require.NoError(t, json.Unmarshal(receive(t, ch), &got))
		assert.Equal(t, 1, got["n"])
	}
	assert.Len(t, other, 0)
}

func TestMemoryBrokerUnsubscribeOnCancel(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "appointments")
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, b.Publish(context.Background(), "appointments", "late"))
}

func TestMemoryBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "appointments")
	require.NoError(t, err)

	for i := 0; i < memoryBufferSize+10; i++ {
		require.NoError(t, b.Publish(ctx, "appointments", i))
	}
	assert.Len(t, ch, memoryBufferSize)
}

func TestMemoryBrokerClose(t *testing.T) {
	b := NewMemoryBroker()
	ch, err := b.Subscribe(context.Background(), "appointments")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, open := <-ch
	assert.False(t, open)

	assert.ErrorIs(t, b.Publish(context.Background(), "appointments", "x"), ErrBrokerClosed)
	_, err = b.Subscribe(context.Background(), "appointments")
	assert.ErrorIs(t, err, ErrBrokerClosed)
	assert.NoError(t, b.Close())
}
