// Package interaction holds the shared overlay of post counters and flags
// that every rendered view of a post reads from after its first mutation.
package interaction

import (
	"sync"

	"github.com/feedsync/feedsync/internal/action"
	"go.uber.org/zap"
)

// DefaultCeiling is the number of distinct posts the cache holds before the
// owning views must refetch and clear it.
const DefaultCeiling = 1000

// Cache maps post ids to their authoritative counters and flags.
// Absence of a key means views trust their own snapshot.
//
// There is no partial eviction: every entry must stay visible to every
// current view, so growth is bounded by refetch-and-clear instead.
type Cache struct {
	entries      map[action.PostID]Entry
	subscribers  map[action.PostID]map[uint64]func(Entry)
	onCeiling    map[uint64]func()
	logger       *zap.Logger
	ceiling      int
	nextID       uint64
	ceilingFired bool
	mu           sync.RWMutex
}

// NewCache creates an empty cache. A ceiling of zero or less uses DefaultCeiling.
func NewCache(ceiling int, logger *zap.Logger) *Cache {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	return &Cache{
		entries:     make(map[action.PostID]Entry),
		subscribers: make(map[action.PostID]map[uint64]func(Entry)),
		onCeiling:   make(map[uint64]func()),
		logger:      logger.Named("interaction_cache"),
		ceiling:     ceiling,
	}
}

// Get returns the cached entry for a post, if any.
func (c *Cache) Get(postID action.PostID) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[postID]
	return entry, ok
}

// Update overwrites the entry for a post and notifies every subscriber of
// that post. The last write wins regardless of network completion order.
func (c *Cache) Update(postID action.PostID, entry Entry) {
	c.mu.Lock()
	c.entries[postID] = entry

	// Copy listeners so callbacks run without the lock held
	listeners := make([]func(Entry), 0, len(c.subscribers[postID]))
	for _, fn := range c.subscribers[postID] {
		listeners = append(listeners, fn)
	}

	var handlers []func()
	if len(c.entries) >= c.ceiling && !c.ceilingFired {
		c.ceilingFired = true
		for _, fn := range c.onCeiling {
			handlers = append(handlers, fn)
		}
	}

	size := len(c.entries)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(entry)
	}

	if handlers != nil {
		c.logger.Info("Interaction cache reached ceiling",
			zap.Int("size", size),
			zap.Int("ceiling", c.ceiling),
			zap.Int("handlers", len(handlers)))

		for _, fn := range handlers {
			go fn()
		}
	}
}

// Subscribe registers fn to run after every update of postID.
// The returned function detaches it and is safe to call more than once.
func (c *Cache) Subscribe(postID action.PostID, fn func(Entry)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++

	if c.subscribers[postID] == nil {
		c.subscribers[postID] = make(map[uint64]func(Entry))
	}
	c.subscribers[postID][id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		subs := c.subscribers[postID]
		delete(subs, id)
		if len(subs) == 0 {
			delete(c.subscribers, postID)
		}
	}
}

// OnCeiling registers fn to run, on its own goroutine, once the number of
// distinct keys reaches the ceiling. It fires again only after Clear.
func (c *Cache) OnCeiling(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.onCeiling[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.onCeiling, id)
	}
}

// Len returns the number of distinct cached posts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ceiling returns the configured size bound.
func (c *Cache) Ceiling() int {
	return c.ceiling
}

// Clear drops every entry after a full refetch has resynchronized the views.
// Subscriptions survive so mounted views keep receiving later updates.
func (c *Cache) Clear() {
	c.mu.Lock()
	cleared := len(c.entries)
	c.entries = make(map[action.PostID]Entry)
	c.ceilingFired = false
	c.mu.Unlock()

	c.logger.Debug("Cleared interaction cache", zap.Int("entries", cleared))
}
