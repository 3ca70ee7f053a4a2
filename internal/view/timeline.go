package view

import (
	"context"

	"github.com/feedsync/feedsync/internal/feed"
	"github.com/feedsync/feedsync/internal/interaction"
	"go.uber.org/zap"
)

// Timeline ties the streams of a page to the interaction cache. Once the
// cache fills up every stream is refetched and the cache is emptied, so
// fresh server snapshots replace the overrides.
type Timeline struct {
	ctx         context.Context
	cache       *interaction.Cache
	group       *feed.Group
	logger      *zap.Logger
	unsubscribe func()
}

// NewTimeline watches cache for its ceiling. ctx bounds the refetches.
func NewTimeline(ctx context.Context, cache *interaction.Cache, group *feed.Group, logger *zap.Logger) *Timeline {
	t := &Timeline{
		ctx:    ctx,
		cache:  cache,
		group:  group,
		logger: logger.Named("timeline"),
	}
	t.unsubscribe = cache.OnCeiling(t.refetch)

	return t
}

// Group returns the streams of the page.
func (t *Timeline) Group() *feed.Group {
	return t.group
}

// Close stops watching the cache.
func (t *Timeline) Close() {
	t.unsubscribe()
}

func (t *Timeline) refetch() {
	t.logger.Info("Interaction cache full, refetching streams",
		zap.Int("entries", t.cache.Len()),
		zap.Int("ceiling", t.cache.Ceiling()))

	if err := t.group.ReloadAll(t.ctx); err != nil {
		t.logger.Warn("Refetch incomplete", zap.Error(err))
	}

	t.cache.Clear()
}
