// Package broadcast fans out change notifications to every live connection
// handler. Delivery is best-effort: a subscriber that cannot keep up loses
// events, the others are unaffected, and publishing never fails the request
// that triggered it.
package broadcast

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

// subscriberBuffer is the per-handler event queue length. A handler that
// falls this far behind starts losing events and can resync via a refresh.
const subscriberBuffer = 16

type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]chan protocol.Event
	logger logging.Logger
}

func New(logger logging.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[string]chan protocol.Event),
		logger: logger.With("module", "broadcast"),
	}
}

// Subscribe registers a subscriber and returns its event channel. The id
// must be unique per subscriber (handlers use their connection id).
func (b *Broadcaster) Subscribe(id string) <-chan protocol.Event {
	ch := make(chan protocol.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber. Idempotent. The channel is left open:
// a publish running against an older snapshot may still send into it, so
// closing here would race. Subscribers stop draining via their own context.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Publish delivers the event to every current subscriber. The subscriber set
// is snapshotted under the read lock, so publishing while connections come
// and go never corrupts iteration. Sends are non-blocking: a full buffer
// drops the event for that subscriber only.
func (b *Broadcaster) Publish(event string, payload any) {
	b.mu.RLock()
	snapshot := make([]chan protocol.Event, 0, len(b.subs))
	for _, ch := range b.subs {
		snapshot = append(snapshot, ch)
	}
	b.mu.RUnlock()

	ev := protocol.Event{Event: event, Data: payload}
	dropped := 0
	for _, ch := range snapshot {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Debug(context.Background(), "event dropped for slow subscribers",
			"event", event, "dropped", dropped)
	}
}

// SubscriberCount reports the number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
