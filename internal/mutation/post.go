package mutation

import (
	"context"
	"fmt"

	"github.com/feedsync/feedsync/internal/action"
	"github.com/feedsync/feedsync/internal/interaction"
	"github.com/feedsync/feedsync/internal/push"
)

// PostKind is the action a post control performs.
type PostKind int

const (
	// PostLike toggles the viewer's like.
	PostLike PostKind = iota
	// PostRepost toggles the viewer's repost.
	PostRepost
	// PostBookmark toggles the viewer's bookmark. It has no public counter.
	PostBookmark
)

func (k PostKind) String() string {
	switch k {
	case PostLike:
		return "like"
	case PostRepost:
		return "repost"
	case PostBookmark:
		return "bookmark"
	default:
		return fmt.Sprintf("PostKind(%d)", int(k))
	}
}

// PostTarget is the post a control is bound to.
type PostTarget struct {
	Cache    *interaction.Cache
	Snapshot interaction.Snapshot
	Actions  action.PostActions
}

// Toggle returns the entry after toggling kind. remove selects the
// direction; a direction that does not match the entry's flag, or removing
// from a zero counter, fails with ErrAlreadyInDesiredState.
func Toggle(entry interaction.Entry, kind PostKind, remove bool) (interaction.Entry, error) {
	next := entry

	switch kind {
	case PostLike:
		if entry.Liked != remove {
			return entry, fmt.Errorf("%w: %s with liked=%t", ErrAlreadyInDesiredState, direction(kind, remove), entry.Liked)
		}
		if remove {
			if next.LikesCount <= 0 {
				return entry, fmt.Errorf("%w: unlike with %d likes", ErrAlreadyInDesiredState, next.LikesCount)
			}
			next.LikesCount--
		} else {
			next.LikesCount++
		}
		next.Liked = !remove

	case PostRepost:
		if entry.Reposted != remove {
			return entry, fmt.Errorf("%w: %s with reposted=%t", ErrAlreadyInDesiredState, direction(kind, remove), entry.Reposted)
		}
		if remove {
			if next.RepostsCount <= 0 {
				return entry, fmt.Errorf("%w: unrepost with %d reposts", ErrAlreadyInDesiredState, next.RepostsCount)
			}
			next.RepostsCount--
		} else {
			next.RepostsCount++
		}
		next.Reposted = !remove

	case PostBookmark:
		if entry.Bookmarked != remove {
			return entry, fmt.Errorf("%w: %s with bookmarked=%t", ErrAlreadyInDesiredState, direction(kind, remove), entry.Bookmarked)
		}
		next.Bookmarked = !remove

	default:
		return entry, fmt.Errorf("unknown post action %d", int(kind))
	}

	return next, nil
}

func direction(kind PostKind, remove bool) string {
	if remove {
		return "un" + kind.String()
	}
	return kind.String()
}

// PostTransaction builds the transaction for toggling kind on target, where
// status is the control's current flag (true means the action is undone).
func (e *Executor) PostTransaction(kind PostKind, status bool, target PostTarget) Transaction {
	postID := target.Snapshot.PostID
	remove := status

	var previous interaction.Entry

	name := direction(kind, remove)

	return Transaction{
		Name: name,
		Apply: func() error {
			base, _ := interaction.Resolve(target.Cache, target.Snapshot)

			next, err := Toggle(base, kind, remove)
			if err != nil {
				return err
			}

			previous = base
			target.Cache.Update(postID, next)
			return nil
		},
		Commit: func(ctx context.Context) (bool, error) {
			return postCall(target.Actions, kind, remove)(ctx, postID)
		},
		Rollback: func() {
			target.Cache.Update(postID, previous)
		},
		OnSuccess: func(ctx context.Context) {
			if kind == PostBookmark || remove {
				return
			}
			e.notify(ctx, push.NotifyPayload{
				Recipient: target.Snapshot.Author,
				Reason:    name,
				PostID:    postID,
			})
		},
	}
}

func postCall(actions action.PostActions, kind PostKind, remove bool) action.PostCall {
	switch {
	case kind == PostLike && !remove:
		return actions.Like
	case kind == PostLike:
		return actions.Unlike
	case kind == PostRepost && !remove:
		return actions.Repost
	case kind == PostRepost:
		return actions.Unrepost
	case kind == PostBookmark && !remove:
		return actions.Bookmark
	default:
		return actions.Unbookmark
	}
}
