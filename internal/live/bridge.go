// Package live turns push events into "N new items" badges. Events never
// touch loaded items; the fetch happens only when the user asks for it.
package live

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/feedsync/feedsync/internal/action"
	"github.com/feedsync/feedsync/internal/push"
	"go.uber.org/zap"
)

// DefaultBadgeCap bounds every badge.
const DefaultBadgeCap = 25

// ErrNoBinding is returned by Load for an event with nothing attached.
var ErrNoBinding = errors.New("no counter attached to event")

// Counter is anything that can show a bounded count of pending items.
type Counter interface {
	IncrementNew(limit int) int
}

// Refresher merges pending items into a stream and clears its count.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Resetter clears a count without fetching.
type Resetter interface {
	Reset()
}

// Events lists the push events the bridge listens to by default.
func Events() []string {
	return []string{
		push.EventNewGlobalPost,
		push.EventNewFollowingPost,
		push.EventNewUserNotification,
	}
}

type binding struct {
	counter Counter
	id      uint64
}

// Bridge fans push events out to the counters attached to them.
type Bridge struct {
	channel  push.Channel
	logger   *zap.Logger
	bindings map[string][]binding
	handlers map[string]func()
	viewer   action.Username
	cap      int
	nextID   uint64
	started  bool
	mu       sync.Mutex
}

// NewBridge creates a bridge over channel. A cap of zero or less uses
// DefaultBadgeCap.
func NewBridge(channel push.Channel, badgeCap int, logger *zap.Logger) *Bridge {
	if badgeCap <= 0 {
		badgeCap = DefaultBadgeCap
	}

	return &Bridge{
		channel:  channel,
		logger:   logger.Named("live_bridge"),
		bindings: make(map[string][]binding),
		handlers: make(map[string]func()),
		cap:      badgeCap,
	}
}

// SetViewer restricts user notification events to the given recipient.
// An empty viewer counts every notification.
func (b *Bridge) SetViewer(username action.Username) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewer = username
}

// Cap returns the badge limit.
func (b *Bridge) Cap() int {
	return b.cap
}

// Attach binds counter to event and returns a function that detaches it.
func (b *Bridge) Attach(event string, counter Counter) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.bindings[event] = append(b.bindings[event], binding{counter: counter, id: id})

	if b.started {
		b.listenLocked(event)
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.bindings[event] = slices.DeleteFunc(b.bindings[event], func(bd binding) bool {
			return bd.id == id
		})
	}
}

// Start connects the channel and subscribes to the default events and
// every attached event.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	if err := b.channel.Connect(ctx); err != nil && !errors.Is(err, push.ErrAlreadyConnected) {
		return fmt.Errorf("failed to connect push channel: %w", err)
	}

	for _, event := range Events() {
		b.listenLocked(event)
	}
	for event := range b.bindings {
		b.listenLocked(event)
	}

	b.started = true
	b.logger.Info("Live updates started", zap.Int("events", len(b.handlers)))

	return nil
}

// Stop unsubscribes and disconnects the channel. The lock is released
// first: Disconnect may wait for a handler that is itself waiting on it.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}

	handlers := b.handlers
	b.handlers = make(map[string]func())
	b.started = false
	b.mu.Unlock()

	for _, off := range handlers {
		off()
	}

	if err := b.channel.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect push channel: %w", err)
	}

	b.logger.Info("Live updates stopped")
	return nil
}

// Load is the "click to load" path: every counter attached to event is
// refreshed if it can fetch, or reset otherwise.
func (b *Bridge) Load(ctx context.Context, event string) error {
	counters := b.counters(event)
	if len(counters) == 0 {
		return fmt.Errorf("%w: %s", ErrNoBinding, event)
	}

	var errs []error
	for _, counter := range counters {
		switch c := counter.(type) {
		case Refresher:
			if err := c.Refresh(ctx); err != nil {
				errs = append(errs, err)
			}
		case Resetter:
			c.Reset()
		}
	}

	return errors.Join(errs...)
}

// listenLocked subscribes to event once.
func (b *Bridge) listenLocked(event string) {
	if _, ok := b.handlers[event]; ok {
		return
	}
	b.handlers[event] = b.channel.On(event, b.handle)
}

// handle bumps every counter attached to the event.
func (b *Bridge) handle(evt push.Event) {
	if !b.addressedToViewer(evt) {
		return
	}

	counters := b.counters(evt.Name)
	for _, counter := range counters {
		count := counter.IncrementNew(b.cap)
		b.logger.Debug("Pending items",
			zap.String("event", evt.Name),
			zap.Int("count", count))
	}
}

// addressedToViewer filters notification events meant for someone else.
func (b *Bridge) addressedToViewer(evt push.Event) bool {
	if evt.Name != push.EventNewUserNotification {
		return true
	}

	b.mu.Lock()
	viewer := b.viewer
	b.mu.Unlock()

	if viewer == "" {
		return true
	}

	var payload push.NotifyPayload
	if err := evt.Decode(&payload); err != nil {
		b.logger.Warn("Malformed notification payload", zap.Error(err))
		return false
	}
	return payload.Recipient == viewer
}

func (b *Bridge) counters(event string) []Counter {
	b.mu.Lock()
	defer b.mu.Unlock()

	counters := make([]Counter, 0, len(b.bindings[event]))
	for _, bd := range b.bindings[event] {
		counters = append(counters, bd.counter)
	}
	return counters
}
