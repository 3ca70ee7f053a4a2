package push

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
)

// Hub is an in-process Channel. Events emitted on a connected hub are
// delivered synchronously to its handlers.
type Hub struct {
	registry  *registry
	origin    string
	connected bool
	mu        sync.RWMutex
}

// NewHub creates a disconnected hub. origin tags every emitted event.
func NewHub(origin string) *Hub {
	return &Hub{
		registry: newRegistry(),
		origin:   origin,
	}
}

// Connect marks the hub ready for emitting.
func (h *Hub) Connect(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connected {
		return ErrAlreadyConnected
	}
	h.connected = true
	return nil
}

// Emit encodes payload and delivers it to every handler of event.
func (h *Hub) Emit(_ context.Context, event string, payload any) error {
	h.mu.RLock()
	connected := h.connected
	h.mu.RUnlock()

	if !connected {
		return ErrNotConnected
	}

	data, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}

	h.registry.dispatch(Event{Name: event, Origin: h.origin, Payload: data})
	return nil
}

// On registers a handler for event.
func (h *Hub) On(event string, handler Handler) func() {
	return h.registry.on(event, handler)
}

// Disconnect stops delivery. Handlers stay registered for a later Connect.
func (h *Hub) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = false
	return nil
}
