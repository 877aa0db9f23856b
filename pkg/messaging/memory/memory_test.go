package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/pkg/messaging"
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

func TestBroker_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBroker()
	ch, err := b.Subscribe(ctx, "appointment.booked")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "appointment.booked", map[string]string{"status": "scheduled"}))
	require.NoError(t, b.Publish(ctx, "appointment.booked", json.RawMessage(`{"raw":true}`)))
	require.NoError(t, b.Publish(ctx, "appointment.cancelled", map[string]string{"ignored": "yes"}))

	assert.JSONEq(t, `{"status":"scheduled"}`, string(receive(t, ch)))
	assert.JSONEq(t, `{"raw":true}`, string(receive(t, ch)))

	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %s", msg)
	default:
	}
}

func TestBroker_CancelClosesSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBroker()
	ch, err := b.Subscribe(ctx, "x")
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestBroker_Closed(t *testing.T) {
	b := NewBroker()
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Publish(context.Background(), "x", "y"), ErrClosed)
	_, err := b.Subscribe(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDispatcher_RoutesAllChannels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBroker()

	var mu sync.Mutex
	seen := map[string]int{}
	handler := func(_ context.Context, channel string, _ []byte) error {
		mu.Lock()
		defer mu.Unlock()
		seen[channel]++
		if channel == "bad" {
			return errors.New("handler failed")
		}
		return nil
	}

	d := messaging.NewDispatcher(b, handler, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, "good", "bad") }()

	// Subscriptions are registered asynchronously; publish until both land.
	assert.Eventually(t, func() bool {
		_ = b.Publish(context.Background(), "good", "1")
		_ = b.Publish(context.Background(), "bad", "2")
		mu.Lock()
		defer mu.Unlock()
		return seen["good"] > 0 && seen["bad"] > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
