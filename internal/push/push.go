// Package push carries out-of-band events between clients. The core only
// uses a handful of named events; the transport behind them is pluggable.
package push

import (
	"context"
	"errors"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/feedsync/feedsync/internal/action"
)

// Event names understood by the core.
const (
	// EventNewGlobalPost announces a post on the global timeline.
	EventNewGlobalPost = "new_global_post"
	// EventNewFollowingPost announces a post by someone the viewer follows.
	EventNewFollowingPost = "new_following_post"
	// EventNewUserNotification tells a user their notification list grew.
	EventNewUserNotification = "new_user_notification"
	// EventNotifyUser is emitted after a successful like, repost, follow or
	// block so the affected user's client can refresh its badge.
	EventNotifyUser = "notify_user"
)

var (
	// ErrNotConnected is returned when emitting on a channel that is not connected.
	ErrNotConnected = errors.New("push channel not connected")
	// ErrAlreadyConnected is returned by a second Connect call.
	ErrAlreadyConnected = errors.New("push channel already connected")
)

// Event is one message received from the channel.
type Event struct {
	Name    string
	Origin  string
	Payload []byte
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return sonic.Unmarshal(e.Payload, v)
}

// Handler consumes events of one name.
type Handler func(Event)

// Channel is a bidirectional event subscription.
type Channel interface {
	Connect(ctx context.Context) error
	Emit(ctx context.Context, event string, payload any) error
	On(event string, handler Handler) func()
	Disconnect() error
}

// Emitter is the emitting half of a Channel.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any) error
}

// NotifyPayload is the body of EventNotifyUser.
type NotifyPayload struct {
	Recipient action.Username `json:"recipient"`
	Reason    string          `json:"reason"`
	PostID    action.PostID   `json:"postId,omitempty"`
}

// NewPostPayload is the body of the new post events.
type NewPostPayload struct {
	PostID action.PostID   `json:"postId"`
	Author action.Username `json:"author"`
}

// registry dispatches events to local handlers by name.
type registry struct {
	handlers map[string]map[uint64]Handler
	nextID   uint64
	mu       sync.RWMutex
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string]map[uint64]Handler)}
}

func (r *registry) on(event string, handler Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	if r.handlers[event] == nil {
		r.handlers[event] = make(map[uint64]Handler)
	}
	r.handlers[event][id] = handler

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.handlers[event], id)
	}
}

func (r *registry) dispatch(evt Event) int {
	r.mu.RLock()
	handlers := make([]Handler, 0, len(r.handlers[evt.Name]))
	for _, h := range r.handlers[evt.Name] {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}

	return len(handlers)
}
