package util

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	var hits atomic.Int32
	var payload atomic.Value
	handler := func(_ context.Context, e Event) error {
		payload.Store(e.Payload)
		hits.Add(1)
		return nil
	}
	bus.Subscribe(EventPolicyChanged, handler)
	bus.Subscribe(EventPolicyChanged, handler)
	bus.Subscribe(EventApprovalPending, func(context.Context, Event) error {
		t.Error("unexpected delivery")
		return nil
	})

	bus.Publish(ctx, EventPolicyChanged, "mail")

	assert.Eventually(t, func() bool { return hits.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "mail", payload.Load())
}

func TestEventBusOutlivesPublisherContext(t *testing.T) {
	bus := NewEventBus()
	bus.Start(context.Background())

	done := make(chan error, 1)
	bus.Subscribe(EventApprovalDecided, func(ctx context.Context, _ Event) error {
		time.Sleep(10 * time.Millisecond)
		done <- ctx.Err()
		return errors.New("handler failed")
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, EventApprovalDecided, nil)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler did not run")
	}
}
