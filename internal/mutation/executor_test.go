package mutation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feedsync/feedsync/internal/action"
	"github.com/feedsync/feedsync/internal/interaction"
	"github.com/feedsync/feedsync/internal/mutation"
	"github.com/feedsync/feedsync/internal/push"
	"github.com/feedsync/feedsync/internal/relationship"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errTransport = errors.New("connection reset")

func accept(context.Context, action.PostID) (bool, error) { return true, nil }

func reject(context.Context, action.PostID) (bool, error) { return false, nil }

func broken(context.Context, action.PostID) (bool, error) { return false, errTransport }

func allPostCalls(fn action.PostCall) action.PostActionFuncs {
	return action.PostActionFuncs{
		LikeFunc: fn, UnlikeFunc: fn,
		RepostFunc: fn, UnrepostFunc: fn,
		BookmarkFunc: fn, UnbookmarkFunc: fn,
	}
}

func allUserCalls(ok bool, err error) action.UserActionFuncs {
	fn := func(context.Context, action.Username) (bool, error) { return ok, err }
	return action.UserActionFuncs{FollowFunc: fn, UnfollowFunc: fn, BlockFunc: fn, UnblockFunc: fn}
}

func newHub(t *testing.T) (*push.Hub, *[]push.NotifyPayload) {
	t.Helper()

	hub := push.NewHub("test")
	require.NoError(t, hub.Connect(t.Context()))

	var sent []push.NotifyPayload
	hub.On(push.EventNotifyUser, func(evt push.Event) {
		var payload push.NotifyPayload
		require.NoError(t, evt.Decode(&payload))
		sent = append(sent, payload)
	})

	return hub, &sent
}

func TestPostRollbackRestoresExactValues(t *testing.T) {
	t.Parallel()

	snapshot := interaction.Snapshot{
		PostID: 10,
		Author: "ada",
		Stats:  interaction.PostStats{LikesCount: 3, RepostsCount: 2, RepliesCount: 1},
		Relationship: interaction.PostRelationship{
			ViewerHasLiked: true,
		},
	}

	for _, kind := range []mutation.PostKind{mutation.PostLike, mutation.PostRepost, mutation.PostBookmark} {
		for _, status := range []bool{false, true} {
			for _, call := range []action.PostCall{reject, broken} {
				t.Run(kind.String(), func(t *testing.T) {
					t.Parallel()

					logger := zaptest.NewLogger(t)
					cache := interaction.NewCache(0, logger)
					exec := mutation.NewExecutor(nil, time.Minute, logger)

					before := interaction.EntryFromSnapshot(snapshot)
					before.Liked = status
					before.Reposted = status
					before.Bookmarked = status
					cache.Update(snapshot.PostID, before)

					var during interaction.Entry
					target := mutation.PostTarget{
						Cache:    cache,
						Snapshot: snapshot,
						Actions: allPostCalls(func(ctx context.Context, id action.PostID) (bool, error) {
							during, _ = cache.Get(id)
							return call(ctx, id)
						}),
					}

					guard := mutation.NewGuard(status)
					err := exec.Run(t.Context(), guard, exec.PostTransaction(kind, status, target))
					require.Error(t, err)

					after, ok := cache.Get(snapshot.PostID)
					require.True(t, ok)
					assert.Equal(t, before, after, "rollback must not drift")
					assert.NotEqual(t, before, during, "optimistic write must land before the call")
					assert.Equal(t, status, guard.Status())
					assert.Error(t, guard.Banner())
				})
			}
		}
	}
}

func TestRelationshipRollbackRestoresExactValues(t *testing.T) {
	t.Parallel()

	initial := relationship.UserState{
		Username: "grace",
		Relationship: relationship.Relationship{
			IsFollowedByViewer:   true,
			IsFollowingViewer:    true,
			NotificationsEnabled: true,
		},
		Stats: relationship.Stats{FollowersCount: 8, FollowingCount: 2},
	}

	tests := []struct {
		name   string
		kind   mutation.UserKind
		status bool
	}{
		{name: "unfollow", kind: mutation.UserFollow, status: true},
		{name: "block", kind: mutation.UserBlock, status: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exec := mutation.NewExecutor(nil, time.Minute, zaptest.NewLogger(t))
			store := relationship.NewStore(initial)
			suggestions := relationship.NewSuggestions()
			suggestions.Set([]relationship.UserState{initial})

			target := mutation.UserTarget{
				Store:       store,
				Suggestions: suggestions,
				Actions:     allUserCalls(false, nil),
			}

			err := exec.Run(t.Context(), mutation.NewGuard(tt.status), exec.RelationshipTransaction(tt.kind, tt.status, target))
			require.ErrorIs(t, err, mutation.ErrServerRejected)

			assert.Equal(t, initial, store.State())
			suggested, ok := suggestions.Lookup("grace")
			require.True(t, ok)
			assert.Equal(t, initial, suggested)
		})
	}
}

func TestRemoveAtZeroIsRejected(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	cache := interaction.NewCache(0, logger)
	exec := mutation.NewExecutor(nil, time.Minute, logger)

	called := false
	target := mutation.PostTarget{
		Cache:    cache,
		Snapshot: interaction.Snapshot{PostID: 3, Relationship: interaction.PostRelationship{ViewerHasLiked: true}},
		Actions: allPostCalls(func(context.Context, action.PostID) (bool, error) {
			called = true
			return true, nil
		}),
	}

	for _, kind := range []mutation.PostKind{mutation.PostLike, mutation.PostRepost} {
		err := exec.Run(t.Context(), mutation.NewGuard(true), exec.PostTransaction(kind, true, target))
		require.ErrorIs(t, err, mutation.ErrAlreadyInDesiredState)
	}

	_, ok := cache.Get(3)
	assert.False(t, ok, "rejected removal must not touch the cache")
	assert.False(t, called)

	store := relationship.NewStore(relationship.UserState{
		Username:     "ken",
		Relationship: relationship.Relationship{IsFollowedByViewer: true},
	})
	err := exec.Run(t.Context(), mutation.NewGuard(true), exec.RelationshipTransaction(mutation.UserFollow, true, mutation.UserTarget{
		Store:   store,
		Actions: allUserCalls(true, nil),
	}))
	require.ErrorIs(t, err, mutation.ErrAlreadyInDesiredState)
	assert.True(t, store.State().Relationship.IsFollowedByViewer)
}

func TestBlockAtZeroIsRejected(t *testing.T) {
	t.Parallel()

	exec := mutation.NewExecutor(nil, time.Minute, zaptest.NewLogger(t))

	tests := []struct {
		name    string
		initial relationship.UserState
	}{
		{
			name: "followed with no followers",
			initial: relationship.UserState{
				Username:     "ken",
				Relationship: relationship.Relationship{IsFollowedByViewer: true},
			},
		},
		{
			name: "following with no following",
			initial: relationship.UserState{
				Username:     "ken",
				Relationship: relationship.Relationship{IsFollowingViewer: true},
				Stats:        relationship.Stats{FollowersCount: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := relationship.NewStore(tt.initial)
			err := exec.Run(t.Context(), mutation.NewGuard(false), exec.RelationshipTransaction(mutation.UserBlock, false, mutation.UserTarget{
				Store:   store,
				Actions: allUserCalls(true, nil),
			}))
			require.ErrorIs(t, err, mutation.ErrAlreadyInDesiredState)
			assert.Equal(t, tt.initial, store.State())
		})
	}
}

func TestSuccessFlipsStatusAndNotifies(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	hub, sent := newHub(t)
	cache := interaction.NewCache(0, logger)
	exec := mutation.NewExecutor(hub, time.Minute, logger)

	target := mutation.PostTarget{
		Cache:    cache,
		Snapshot: interaction.Snapshot{PostID: 4, Author: "ada", Stats: interaction.PostStats{LikesCount: 1}},
		Actions:  allPostCalls(accept),
	}

	like := mutation.NewGuard(false)
	require.NoError(t, exec.Run(t.Context(), like, exec.PostTransaction(mutation.PostLike, false, target)))
	assert.True(t, like.Status())
	assert.NoError(t, like.Banner())

	entry, _ := cache.Get(4)
	assert.Equal(t, interaction.Entry{LikesCount: 2, Liked: true}, entry)

	bookmark := mutation.NewGuard(false)
	require.NoError(t, exec.Run(t.Context(), bookmark, exec.PostTransaction(mutation.PostBookmark, false, target)))

	entry, _ = cache.Get(4)
	assert.Equal(t, interaction.Entry{LikesCount: 2, Liked: true, Bookmarked: true}, entry)

	// Undo does not notify
	require.NoError(t, exec.Run(t.Context(), like, exec.PostTransaction(mutation.PostLike, like.Status(), target)))
	assert.False(t, like.Status())

	require.Len(t, *sent, 1)
	assert.Equal(t, push.NotifyPayload{Recipient: "ada", Reason: "like", PostID: 4}, (*sent)[0])

	store := relationship.NewStore(relationship.UserState{Username: "grace"})
	follow := mutation.NewGuard(false)
	require.NoError(t, exec.Run(t.Context(), follow, exec.RelationshipTransaction(mutation.UserFollow, false, mutation.UserTarget{
		Store:   store,
		Actions: allUserCalls(true, nil),
	})))
	assert.True(t, follow.Status())
	assert.True(t, store.State().Relationship.IsFollowedByViewer)

	require.Len(t, *sent, 2)
	assert.Equal(t, push.NotifyPayload{Recipient: "grace", Reason: "follow"}, (*sent)[1])
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	exec := mutation.NewExecutor(nil, time.Minute, logger)

	tests := []struct {
		name     string
		call     action.PostCall
		expected error
	}{
		{name: "server rejected", call: reject, expected: mutation.ErrServerRejected},
		{name: "network failure", call: broken, expected: mutation.ErrNetworkFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target := mutation.PostTarget{
				Cache:    interaction.NewCache(0, logger),
				Snapshot: interaction.Snapshot{PostID: 1},
				Actions:  allPostCalls(tt.call),
			}

			err := exec.Run(t.Context(), mutation.NewGuard(false), exec.PostTransaction(mutation.PostRepost, false, target))
			require.ErrorIs(t, err, tt.expected)
		})
	}

	target := mutation.PostTarget{Cache: interaction.NewCache(0, logger), Snapshot: interaction.Snapshot{PostID: 1}, Actions: allPostCalls(broken)}
	err := exec.Run(t.Context(), mutation.NewGuard(false), exec.PostTransaction(mutation.PostLike, false, target))
	assert.ErrorIs(t, err, errTransport)
}

func TestSecondActivationWhileSubmittingIsNoop(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	cache := interaction.NewCache(0, logger)
	exec := mutation.NewExecutor(nil, time.Minute, logger)

	release := make(chan struct{})
	entered := make(chan struct{})
	target := mutation.PostTarget{
		Cache:    cache,
		Snapshot: interaction.Snapshot{PostID: 2},
		Actions: allPostCalls(func(context.Context, action.PostID) (bool, error) {
			close(entered)
			<-release
			return true, nil
		}),
	}

	guard := mutation.NewGuard(false)
	done := make(chan error, 1)
	go func() {
		done <- exec.Run(context.Background(), guard, exec.PostTransaction(mutation.PostLike, false, target))
	}()

	<-entered
	assert.True(t, guard.Submitting())

	err := exec.Run(t.Context(), guard, exec.PostTransaction(mutation.PostLike, guard.Status(), target))
	require.ErrorIs(t, err, mutation.ErrInFlight)

	entry, _ := cache.Get(2)
	assert.Equal(t, 1, entry.LikesCount, "second activation must not apply")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, guard.Submitting())
	assert.True(t, guard.Status())
}

func TestBannerClearsItself(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	exec := mutation.NewExecutor(nil, 30*time.Millisecond, logger)

	target := mutation.PostTarget{
		Cache:    interaction.NewCache(0, logger),
		Snapshot: interaction.Snapshot{PostID: 1},
		Actions:  allPostCalls(reject),
	}

	guard := mutation.NewGuard(false)
	require.Error(t, exec.Run(t.Context(), guard, exec.PostTransaction(mutation.PostLike, false, target)))
	require.ErrorIs(t, guard.Banner(), mutation.ErrServerRejected)

	assert.Eventually(t, func() bool { return guard.Banner() == nil }, time.Second, 5*time.Millisecond)
}

func TestToggle(t *testing.T) {
	t.Parallel()

	next, err := mutation.Toggle(interaction.Entry{RepostsCount: 1, Reposted: true}, mutation.PostRepost, true)
	require.NoError(t, err)
	assert.Equal(t, interaction.Entry{}, next)

	_, err = mutation.Toggle(interaction.Entry{}, mutation.PostKind(9), false)
	assert.Error(t, err)

	tests := []struct {
		name   string
		entry  interaction.Entry
		kind   mutation.PostKind
		remove bool
	}{
		{name: "like when liked", entry: interaction.Entry{LikesCount: 5, Liked: true}, kind: mutation.PostLike},
		{name: "unlike when not liked", entry: interaction.Entry{LikesCount: 5}, kind: mutation.PostLike, remove: true},
		{name: "repost when reposted", entry: interaction.Entry{RepostsCount: 1, Reposted: true}, kind: mutation.PostRepost},
		{name: "unbookmark when not bookmarked", entry: interaction.Entry{}, kind: mutation.PostBookmark, remove: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			next, err := mutation.Toggle(tt.entry, tt.kind, tt.remove)
			require.ErrorIs(t, err, mutation.ErrAlreadyInDesiredState)
			assert.Equal(t, tt.entry, next)
		})
	}
}
