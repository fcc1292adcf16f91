// Package broadcast fans committed mutation events out to connected
// observers.
//
// Publish only enqueues; a single dispatch loop drains the queue and copies
// each event into every subscription's buffered channel. Because one loop
// delivers in enqueue order and every subscription is a FIFO, an observer
// sees events in the order they were published. Delivery is best effort: a
// full queue or a full subscription buffer drops the event for that observer.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"routelink/internal/events"
)

const (
	DefaultQueueSize  = 256
	DefaultBufferSize = 64
)

// Subscription receives events on C until it is cancelled or the hub stops.
type Subscription struct {
	ID string
	C  <-chan events.Event

	ch      chan events.Event
	dropped atomic.Uint64
	once    sync.Once
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Dropped reports how many events were discarded because C was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Hub is the change broadcaster. The zero value is not usable; call NewHub.
type Hub struct {
	queue      chan events.Event
	bufferSize int

	mu      sync.Mutex
	subs    map[string]*Subscription
	stopped bool
}

// NewHub creates a hub. Run must be called for events to be delivered.
func NewHub(queueSize, bufferSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		queue:      make(chan events.Event, queueSize),
		bufferSize: bufferSize,
		subs:       make(map[string]*Subscription),
	}
}

// Publish enqueues e without blocking the caller.
func (h *Hub) Publish(e events.Event) {
	select {
	case h.queue <- e:
	default:
		logrus.WithFields(logrus.Fields{
			"type":     e.Type,
			"route_id": e.RouteID,
		}).Warn("Broadcast queue full, dropping event.")
	}
}

// Subscribe registers a new observer.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan events.Event, h.bufferSize)
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		sub.close()
		return sub
	}
	h.subs[sub.ID] = sub
	logrus.WithField("subscriber_id", sub.ID).Debug("Observer subscribed.")
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.ID]; ok {
		delete(h.subs, sub.ID)
		sub.close()
		logrus.WithField("subscriber_id", sub.ID).Debug("Observer unsubscribed.")
	}
}

// Subscribers reports the number of connected observers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Run dispatches queued events until ctx is done, then closes every
// subscription. Events still queued at that point are discarded.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-h.queue:
			h.dispatch(e)
		}
	}
}

func (h *Hub) dispatch(e events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		select {
		case sub.ch <- e:
		default:
			sub.dropped.Add(1)
			logrus.WithFields(logrus.Fields{
				"subscriber_id": id,
				"type":          e.Type,
			}).Warn("Observer buffer full, dropping event.")
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for id, sub := range h.subs {
		sub.close()
		delete(h.subs, id)
	}
}
