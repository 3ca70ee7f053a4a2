// Package action declares the collaborators that perform server-side work
// on behalf of the core: mutations against posts and users, and paged fetches.
// The core never talks to a transport directly.
package action

import (
	"context"
	"errors"
)

// ErrUnknownKind is returned when a stream name does not match any Kind.
var ErrUnknownKind = errors.New("unknown stream kind")

// PostID identifies a post. Cross-view synchronization keys off this value.
type PostID = int64

// Username identifies a user. Unlike the display name it never changes.
type Username = string

// PostActions performs post mutations. Each call reports whether the server
// accepted the change; a non-nil error means the request never completed.
type PostActions interface {
	Like(ctx context.Context, postID PostID) (bool, error)
	Unlike(ctx context.Context, postID PostID) (bool, error)
	Repost(ctx context.Context, postID PostID) (bool, error)
	Unrepost(ctx context.Context, postID PostID) (bool, error)
	Bookmark(ctx context.Context, postID PostID) (bool, error)
	Unbookmark(ctx context.Context, postID PostID) (bool, error)
}

// UserActions performs relationship mutations against another user.
type UserActions interface {
	Follow(ctx context.Context, username Username) (bool, error)
	Unfollow(ctx context.Context, username Username) (bool, error)
	Block(ctx context.Context, username Username) (bool, error)
	Unblock(ctx context.Context, username Username) (bool, error)
}

// Page is one batch returned by a paged fetch.
type Page[T any] struct {
	Items      []T
	EndReached bool
}

// Fetcher loads pages of a stream. A zero cursor asks for the newest page.
type Fetcher[T any] interface {
	FetchOlder(ctx context.Context, kind Kind, cursor PostID) (Page[T], error)
	FetchNewer(ctx context.Context, kind Kind, beforeID PostID) (Page[T], error)
}

// PostCall is the shape of a single post mutation.
type PostCall func(ctx context.Context, postID PostID) (bool, error)

// UserCall is the shape of a single relationship mutation.
type UserCall func(ctx context.Context, username Username) (bool, error)

// PostActionFuncs adapts plain functions to PostActions.
// A nil function reports a rejected mutation.
type PostActionFuncs struct {
	LikeFunc       PostCall
	UnlikeFunc     PostCall
	RepostFunc     PostCall
	UnrepostFunc   PostCall
	BookmarkFunc   PostCall
	UnbookmarkFunc PostCall
}

func (f PostActionFuncs) Like(ctx context.Context, id PostID) (bool, error) {
	return callPost(ctx, f.LikeFunc, id)
}

func (f PostActionFuncs) Unlike(ctx context.Context, id PostID) (bool, error) {
	return callPost(ctx, f.UnlikeFunc, id)
}

func (f PostActionFuncs) Repost(ctx context.Context, id PostID) (bool, error) {
	return callPost(ctx, f.RepostFunc, id)
}

func (f PostActionFuncs) Unrepost(ctx context.Context, id PostID) (bool, error) {
	return callPost(ctx, f.UnrepostFunc, id)
}

func (f PostActionFuncs) Bookmark(ctx context.Context, id PostID) (bool, error) {
	return callPost(ctx, f.BookmarkFunc, id)
}

func (f PostActionFuncs) Unbookmark(ctx context.Context, id PostID) (bool, error) {
	return callPost(ctx, f.UnbookmarkFunc, id)
}

// UserActionFuncs adapts plain functions to UserActions.
// A nil function reports a rejected mutation.
type UserActionFuncs struct {
	FollowFunc   UserCall
	UnfollowFunc UserCall
	BlockFunc    UserCall
	UnblockFunc  UserCall
}

func (f UserActionFuncs) Follow(ctx context.Context, username Username) (bool, error) {
	return callUser(ctx, f.FollowFunc, username)
}

func (f UserActionFuncs) Unfollow(ctx context.Context, username Username) (bool, error) {
	return callUser(ctx, f.UnfollowFunc, username)
}

func (f UserActionFuncs) Block(ctx context.Context, username Username) (bool, error) {
	return callUser(ctx, f.BlockFunc, username)
}

func (f UserActionFuncs) Unblock(ctx context.Context, username Username) (bool, error) {
	return callUser(ctx, f.UnblockFunc, username)
}

// FetcherFuncs adapts plain functions to Fetcher.
type FetcherFuncs[T any] struct {
	OlderFunc func(ctx context.Context, kind Kind, cursor PostID) (Page[T], error)
	NewerFunc func(ctx context.Context, kind Kind, beforeID PostID) (Page[T], error)
}

func (f FetcherFuncs[T]) FetchOlder(ctx context.Context, kind Kind, cursor PostID) (Page[T], error) {
	if f.OlderFunc == nil {
		return Page[T]{EndReached: true}, nil
	}
	return f.OlderFunc(ctx, kind, cursor)
}

func (f FetcherFuncs[T]) FetchNewer(ctx context.Context, kind Kind, beforeID PostID) (Page[T], error) {
	if f.NewerFunc == nil {
		return Page[T]{}, nil
	}
	return f.NewerFunc(ctx, kind, beforeID)
}

func callPost(ctx context.Context, fn PostCall, id PostID) (bool, error) {
	if fn == nil {
		return false, nil
	}
	return fn(ctx, id)
}

func callUser(ctx context.Context, fn UserCall, username Username) (bool, error) {
	if fn == nil {
		return false, nil
	}
	return fn(ctx, username)
}
