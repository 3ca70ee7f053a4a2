package feed

import (
	"context"
	"sync"

	"github.com/feedsync/feedsync/internal/action"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Stream is the type-independent face of a paginator.
type Stream interface {
	Kind() action.Kind
	Reload(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Group is the set of independent streams shown on one page, such as the
// global and following feeds, or the tabs of a profile.
type Group struct {
	streams map[action.Kind]Stream
	logger  *zap.Logger
	mu      sync.RWMutex
}

// NewGroup creates an empty group.
func NewGroup(logger *zap.Logger) *Group {
	return &Group{
		streams: make(map[action.Kind]Stream),
		logger:  logger.Named("feed_group"),
	}
}

// Add registers a stream, replacing any stream of the same kind.
func (g *Group) Add(s Stream) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.streams[s.Kind()] = s
}

// Get returns the stream of the given kind.
func (g *Group) Get(kind action.Kind) (Stream, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, ok := g.streams[kind]
	return s, ok
}

// ReloadAll refetches every stream concurrently. A failing stream does not
// stop the others; their errors are joined.
func (g *Group) ReloadAll(ctx context.Context) error {
	g.mu.RLock()
	streams := make([]Stream, 0, len(g.streams))
	for _, s := range g.streams {
		streams = append(streams, s)
	}
	g.mu.RUnlock()

	p := pool.New().WithContext(ctx)
	for _, s := range streams {
		p.Go(func(ctx context.Context) error {
			return s.Reload(ctx)
		})
	}

	err := p.Wait()
	if err != nil {
		g.logger.Warn("Some streams failed to reload", zap.Error(err))
	} else {
		g.logger.Debug("Reloaded streams", zap.Int("count", len(streams)))
	}

	return err
}
