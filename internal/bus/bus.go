package bus

import (
	"sync"

	"github.com/vincentbai/pixel-bridge/internal/models"
)

type Handler func(models.TrackedEvent)

// Bus delivers each published event to the handlers subscribed to its name,
// synchronously and in subscription order. Publishes are serialized so that
// handlers see events in emission order.
type Bus struct {
	mu       sync.RWMutex
	publish  sync.Mutex
	handlers map[string][]Handler
}

func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(eventName string, handler func(models.TrackedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish returns the number of handlers that received the event.
func (b *Bus) Publish(event models.TrackedEvent) int {
	b.publish.Lock()
	defer b.publish.Unlock()

	// Snapshot so handlers may subscribe without deadlocking.
	b.mu.RLock()
	snapshot := append([]Handler(nil), b.handlers[event.Name]...)
	b.mu.RUnlock()

	for _, h := range snapshot {
		h(event)
	}
	return len(snapshot)
}

func (b *Bus) Count(eventName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventName])
}
