// Package view binds rendered instances of posts, users and timelines to
// the shared caches so every instance of an entity shows the same state.
package view

import (
	"context"
	"sync"

	"github.com/feedsync/feedsync/internal/action"
	"github.com/feedsync/feedsync/internal/interaction"
	"github.com/feedsync/feedsync/internal/mutation"
)

// PostRender is what one post instance shows.
type PostRender struct {
	PostID action.PostID
	Entry  interaction.Entry
	// Transition is the direction each counter moved since the previous render.
	Transition interaction.Transition
	// Cached is false while the instance still shows its own snapshot.
	Cached bool
}

// Post is one rendered instance of a post.
type Post struct {
	exec        *mutation.Executor
	cache       *interaction.Cache
	actions     action.PostActions
	guards      map[mutation.PostKind]*mutation.Guard
	onChange    func(PostRender)
	unsubscribe func()
	snapshot    interaction.Snapshot
	last        interaction.Entry
	rendered    bool
	mu          sync.Mutex
}

// NewPost binds snapshot to the cache. Cache changes for the post re-render
// the instance through the hook set with OnChange.
func NewPost(exec *mutation.Executor, cache *interaction.Cache, snapshot interaction.Snapshot, actions action.PostActions) *Post {
	entry, _ := interaction.Resolve(cache, snapshot)

	p := &Post{
		exec:    exec,
		cache:   cache,
		actions: actions,
		guards: map[mutation.PostKind]*mutation.Guard{
			mutation.PostLike:     mutation.NewGuard(entry.Liked),
			mutation.PostRepost:   mutation.NewGuard(entry.Reposted),
			mutation.PostBookmark: mutation.NewGuard(entry.Bookmarked),
		},
		snapshot: snapshot,
	}
	p.unsubscribe = cache.Subscribe(snapshot.PostID, func(entry interaction.Entry) {
		p.sync(entry)

		p.mu.Lock()
		hook := p.onChange
		p.mu.Unlock()

		if hook != nil {
			hook(p.Render())
		}
	})

	return p
}

// OnChange sets the re-render hook.
func (p *Post) OnChange(fn func(PostRender)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Render resolves the entry to show, preferring the cache over the
// snapshot, and syncs the controls with it.
func (p *Post) Render() PostRender {
	entry, cached := interaction.Resolve(p.cache, p.snapshot)
	p.sync(entry)

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := entry
	if p.rendered {
		prev = p.last
	}
	p.last = entry
	p.rendered = true

	return PostRender{
		PostID:     p.snapshot.PostID,
		Entry:      entry,
		Transition: interaction.Diff(prev, entry),
		Cached:     cached,
	}
}

// ToggleLike likes or unlikes the post.
func (p *Post) ToggleLike(ctx context.Context) error {
	return p.toggle(ctx, mutation.PostLike)
}

// ToggleRepost reposts or unreposts the post.
func (p *Post) ToggleRepost(ctx context.Context) error {
	return p.toggle(ctx, mutation.PostRepost)
}

// ToggleBookmark bookmarks or unbookmarks the post.
func (p *Post) ToggleBookmark(ctx context.Context) error {
	return p.toggle(ctx, mutation.PostBookmark)
}

// Guard returns the control state of kind.
func (p *Post) Guard(kind mutation.PostKind) *mutation.Guard {
	return p.guards[kind]
}

// Close detaches the instance from the cache. An in-flight mutation still
// lands in the cache for other instances.
func (p *Post) Close() {
	p.unsubscribe()
}

// sync sets every control from entry. Guards that are submitting keep
// their own status.
func (p *Post) sync(entry interaction.Entry) {
	p.guards[mutation.PostLike].SetStatus(entry.Liked)
	p.guards[mutation.PostRepost].SetStatus(entry.Reposted)
	p.guards[mutation.PostBookmark].SetStatus(entry.Bookmarked)
}

func (p *Post) toggle(ctx context.Context, kind mutation.PostKind) error {
	entry, _ := interaction.Resolve(p.cache, p.snapshot)
	p.sync(entry)

	g := p.guards[kind]
	tx := p.exec.PostTransaction(kind, g.Status(), mutation.PostTarget{
		Cache:    p.cache,
		Snapshot: p.snapshot,
		Actions:  p.actions,
	})
	return p.exec.Run(ctx, g, tx)
}
