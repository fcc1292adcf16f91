package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routelink/internal/events"
)

func runHub(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func receive(t *testing.T, sub *Subscription) events.Event {
	t.Helper()
	select {
	case e, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func TestHubDeliversInPublishOrder(t *testing.T) {
	h := NewHub(0, 0)
	a, b := h.Subscribe(), h.Subscribe()
	runHub(t, h)
	assert.Equal(t, 2, h.Subscribers())

	for i := uint(1); i <= 20; i++ {
		h.Publish(events.NewRiderRemoved(i, 7, "2025-03-01"))
	}
	for _, sub := range []*Subscription{a, b} {
		for i := uint(1); i <= 20; i++ {
			e := receive(t, sub)
			assert.Equal(t, events.RiderRemoved, e.Type)
			assert.Equal(t, i, e.RiderID)
		}
	}
}

func TestHubDropsForSlowObserver(t *testing.T) {
	h := NewHub(16, 1)
	slow, fast := h.Subscribe(), h.Subscribe()
	runHub(t, h)

	got := make(chan uint, 3)
	go func() {
		for e := range fast.C {
			got <- e.RiderID
		}
	}()
	for i := uint(1); i <= 3; i++ {
		h.Publish(events.NewRiderRemoved(i, 7, "2025-03-01"))
		// let the fast reader keep up with its one-slot buffer
		assert.Equal(t, i, <-got)
	}

	assert.Equal(t, uint(1), receive(t, slow).RiderID)
	assert.EqualValues(t, 2, slow.Dropped())
	assert.Zero(t, fast.Dropped())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(0, 0)
	sub := h.Subscribe()
	h.Unsubscribe(sub)
	h.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Zero(t, h.Subscribers())
}

func TestRunClosesSubscriptionsOnShutdown(t *testing.T) {
	h := NewHub(0, 0)
	sub := h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	_, ok := <-sub.C
	assert.False(t, ok)

	late := h.Subscribe()
	_, ok = <-late.C
	assert.False(t, ok, "subscribing after shutdown yields a closed channel")
	assert.Zero(t, h.Subscribers())
}

func TestPublishDoesNotBlockWhenQueueFull(t *testing.T) {
	h := NewHub(1, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			h.Publish(events.NewRiderRemoved(uint(i), 1, "2025-03-01"))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running dispatcher")
	}
}
