// Package feed implements cursor-based pagination over independent streams.
package feed

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"

	"github.com/feedsync/feedsync/internal/action"
	"github.com/feedsync/feedsync/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnknownPolicy is returned for an unrecognized retry policy name.
	ErrUnknownPolicy = errors.New("unknown retry policy")
	// ErrFetchFailed wraps the error that stopped a stream.
	ErrFetchFailed = errors.New("feed fetch failed")
)

// Entity is anything with a stable integer id.
type Entity interface {
	EntityID() action.PostID
}

// Trigger describes one firing of the near-bottom sentinel.
type Trigger struct {
	// Visible is whether the sentinel is on screen.
	Visible bool
	// ScrollY is the scroll position at the time of firing.
	ScrollY int
}

// State is a copy of a paginator's data for rendering.
type State[T Entity] struct {
	Kind         action.Kind
	Items        []T
	Cursor       action.PostID
	EndReached   bool
	NewItemCount int
	Seeded       bool
	Err          error
}

// Paginator holds the loaded items of one stream. The cursor is the id of
// the last loaded item, or zero when there is none.
//
// Every Seed and Reload starts a new generation. A fetch started in an
// earlier generation is dropped when it returns.
type Paginator[T Entity] struct {
	fetcher       action.Fetcher[T]
	logger        *zap.Logger
	subscribers   map[uint64]func(State[T])
	ids           map[action.PostID]struct{}
	err           error
	items         []T
	opts          Options
	flight        singleflight.Group
	kind          action.Kind
	cursor        action.PostID
	newItemCount  int
	lastScrollY   int
	nextID        uint64
	gen           uint64
	scrollTracked bool
	endReached    bool
	seeded        bool
	mu            sync.RWMutex
}

// New creates an unseeded paginator for one stream.
func New[T Entity](kind action.Kind, fetcher action.Fetcher[T], opts Options, logger *zap.Logger) *Paginator[T] {
	if opts.Policy == "" {
		opts.Policy = PolicyFailClosed
	}

	return &Paginator[T]{
		fetcher:     fetcher,
		logger:      logger.Named("feed").With(zap.String("stream", kind.String())),
		subscribers: make(map[uint64]func(State[T])),
		ids:         make(map[action.PostID]struct{}),
		opts:        opts,
		kind:        kind,
	}
}

// Kind returns the stream this paginator serves.
func (p *Paginator[T]) Kind() action.Kind {
	return p.kind
}

// Seed installs a server-rendered first page.
func (p *Paginator[T]) Seed(items []T, cursor action.PostID, endReached bool) {
	p.mu.Lock()
	p.resetLocked()
	p.appendLocked(items)
	p.cursor = cursor
	p.endReached = endReached
	p.seeded = true
	state, listeners := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(state, listeners)
}

// State returns a copy of the current state.
func (p *Paginator[T]) State() State[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state, _ := p.snapshotLocked()
	return state
}

// Load fetches the first page when no seed was provided.
func (p *Paginator[T]) Load(ctx context.Context) error {
	p.mu.RLock()
	gen := p.gen
	p.mu.RUnlock()

	_, err, _ := p.flight.Do(flightKey("first", gen), func() (any, error) {
		p.mu.RLock()
		seeded := p.seeded || p.gen != gen
		p.mu.RUnlock()

		if seeded {
			return nil, nil
		}
		return nil, p.fetchOlder(ctx, gen, 0)
	})
	return err
}

// LoadOlder appends the next older page. It does nothing, returning false,
// unless the stream has more items, the sentinel is visible, and the scroll
// position moved since the last firing.
func (p *Paginator[T]) LoadOlder(ctx context.Context, trigger Trigger) (bool, error) {
	p.mu.Lock()
	if !p.seeded || p.endReached || p.cursor == 0 || !trigger.Visible ||
		(p.scrollTracked && trigger.ScrollY == p.lastScrollY) {
		p.mu.Unlock()
		return false, nil
	}

	p.lastScrollY = trigger.ScrollY
	p.scrollTracked = true
	gen := p.gen
	p.mu.Unlock()

	_, err, _ := p.flight.Do(flightKey("older", gen), func() (any, error) {
		p.mu.RLock()
		cursor, ended := p.cursor, p.endReached
		stale := p.gen != gen
		p.mu.RUnlock()

		if stale || ended || cursor == 0 {
			return nil, nil
		}
		return nil, p.fetchOlder(ctx, gen, cursor)
	})

	return true, err
}

// MergeNewer prepends items newer than beforeID and resets the new item count.
func (p *Paginator[T]) MergeNewer(ctx context.Context, beforeID action.PostID) error {
	p.mu.RLock()
	gen := p.gen
	p.mu.RUnlock()

	_, err, _ := p.flight.Do(flightKey("newer", gen), func() (any, error) {
		page, err := p.fetch(ctx, func() (action.Page[T], error) {
			return p.fetcher.FetchNewer(ctx, p.kind, beforeID)
		})

		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()
			p.logger.Debug("Dropped newer page from a previous load", zap.Int64("beforeID", beforeID))
			return nil, nil
		}

		if err != nil {
			err = p.failClosedLocked(err)
		} else {
			wasEmpty := len(p.items) == 0
			added := p.prependLocked(page.Items)
			if wasEmpty && len(p.items) > 0 {
				p.cursor = p.items[len(p.items)-1].EntityID()
			}
			p.newItemCount = 0
			p.seeded = true

			p.logger.Debug("Merged newer items",
				zap.Int64("beforeID", beforeID),
				zap.Int("added", added))
		}
		state, listeners := p.snapshotLocked()
		p.mu.Unlock()

		p.notify(state, listeners)
		return nil, err
	})
	return err
}

// Refresh merges everything newer than the current head. An empty stream
// is reloaded instead.
func (p *Paginator[T]) Refresh(ctx context.Context) error {
	p.mu.RLock()
	var head action.PostID
	if len(p.items) > 0 {
		head = p.items[0].EntityID()
	}
	p.mu.RUnlock()

	if head == 0 {
		return p.Reload(ctx)
	}
	return p.MergeNewer(ctx, head)
}

// Reload drops everything and fetches the first page again. It is the
// recovery path after the stream failed closed.
func (p *Paginator[T]) Reload(ctx context.Context) error {
	p.mu.Lock()
	p.resetLocked()
	p.mu.Unlock()

	return p.Load(ctx)
}

// IncrementNew bumps the new item count up to limit and returns it.
// Items and cursor are left alone. A limit of zero or less is unbounded.
func (p *Paginator[T]) IncrementNew(limit int) int {
	p.mu.Lock()
	if limit <= 0 || p.newItemCount < limit {
		p.newItemCount++
	}
	count := p.newItemCount
	state, listeners := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(state, listeners)
	return count
}

// Subscribe registers fn to run after every state change.
func (p *Paginator[T]) Subscribe(fn func(State[T])) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}
}

// fetchOlder loads the page after cursor and appends it, unless the stream
// moved past generation gen while the fetch ran.
func (p *Paginator[T]) fetchOlder(ctx context.Context, gen uint64, cursor action.PostID) error {
	page, err := p.fetch(ctx, func() (action.Page[T], error) {
		return p.fetcher.FetchOlder(ctx, p.kind, cursor)
	})

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		p.logger.Debug("Dropped older page from a previous load", zap.Int64("cursor", cursor))
		return nil
	}

	if err != nil {
		err = p.failClosedLocked(err)
	} else {
		added := p.appendLocked(page.Items)
		if len(page.Items) == 0 {
			p.cursor = 0
		} else {
			p.cursor = p.items[len(p.items)-1].EntityID()
		}
		p.endReached = page.EndReached
		p.seeded = true
		p.err = nil

		p.logger.Debug("Loaded older items",
			zap.Int64("cursor", cursor),
			zap.Int("added", added),
			zap.Bool("endReached", page.EndReached))
	}
	state, listeners := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(state, listeners)
	return err
}

// fetch runs op under the configured retry policy.
func (p *Paginator[T]) fetch(ctx context.Context, op func() (action.Page[T], error)) (action.Page[T], error) {
	if p.opts.Policy != PolicyBackoff {
		return op()
	}

	return utils.WithRetry(ctx, func() (action.Page[T], error) {
		page, err := op()
		if err != nil && ctx.Err() != nil {
			return page, utils.Permanent(err)
		}
		return page, err
	}, p.opts.Retry)
}

// failClosedLocked stops the stream permanently until Reload.
func (p *Paginator[T]) failClosedLocked(err error) error {
	p.endReached = true
	p.cursor = 0
	p.seeded = true
	p.err = errors.Join(ErrFetchFailed, err)

	p.logger.Warn("Feed fetch failed, stream stopped",
		zap.String("policy", string(p.opts.Policy)),
		zap.Error(err))

	return p.err
}

// appendLocked adds items not already present to the tail.
func (p *Paginator[T]) appendLocked(items []T) int {
	added := 0
	for _, item := range items {
		id := item.EntityID()
		if _, dup := p.ids[id]; dup {
			continue
		}
		p.ids[id] = struct{}{}
		p.items = append(p.items, item)
		added++
	}
	return added
}

// prependLocked adds items not already present to the head, keeping their order.
func (p *Paginator[T]) prependLocked(items []T) int {
	fresh := make([]T, 0, len(items))
	for _, item := range items {
		id := item.EntityID()
		if _, dup := p.ids[id]; dup {
			continue
		}
		p.ids[id] = struct{}{}
		fresh = append(fresh, item)
	}

	p.items = append(fresh, p.items...)
	return len(fresh)
}

func (p *Paginator[T]) resetLocked() {
	p.gen++
	p.items = nil
	p.ids = make(map[action.PostID]struct{})
	p.cursor = 0
	p.endReached = false
	p.seeded = false
	p.err = nil
	p.newItemCount = 0
	p.scrollTracked = false
}

// flightKey scopes a singleflight call to one generation so a fetch from
// before a reset is never joined.
func flightKey(op string, gen uint64) string {
	return op + ":" + strconv.FormatUint(gen, 10)
}

func (p *Paginator[T]) snapshotLocked() (State[T], []func(State[T])) {
	listeners := make([]func(State[T]), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		listeners = append(listeners, fn)
	}

	return State[T]{
		Kind:         p.kind,
		Items:        slices.Clone(p.items),
		Cursor:       p.cursor,
		EndReached:   p.endReached,
		NewItemCount: p.newItemCount,
		Seeded:       p.seeded,
		Err:          p.err,
	}, listeners
}

func (p *Paginator[T]) notify(state State[T], listeners []func(State[T])) {
	for _, fn := range listeners {
		fn(state)
	}
}
