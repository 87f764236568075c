// Package broadcast fans live task events out to subscribers, typically
// websocket sessions. Delivery is best-effort: a subscriber that falls
// behind its buffer loses events rather than stalling execution.
package broadcast

import (
	"sync"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/pkg/types"
)

// subscriberBuffer bounds how far a slow consumer may lag.
const subscriberBuffer = 100

// Broadcaster delivers task events to any number of subscribers.
type Broadcaster struct {
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[string]chan *types.TaskEvent
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		logger:      logger,
		subscribers: make(map[string]chan *types.TaskEvent),
	}
}

// Subscribe creates a new event subscription under the given id. An
// existing subscription with the same id is replaced and closed.
func (b *Broadcaster) Subscribe(id string) <-chan *types.TaskEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.subscribers[id]; ok {
		close(old)
	}
	ch := make(chan *types.TaskEvent, subscriberBuffer)
	b.subscribers[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Publish delivers an event to every subscriber without blocking. Events
// to a full subscriber buffer are dropped.
func (b *Broadcaster) Publish(event *types.TaskEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("dropping task event for slow subscriber",
				zap.String("subscriber", id),
				zap.String("event_type", string(event.Type)))
		}
	}
}

// SubscriberCount reports the number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
