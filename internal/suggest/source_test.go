package suggest_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/feedsync/feedsync/internal/relationship"
	"github.com/feedsync/feedsync/internal/suggest"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupSource(t *testing.T) (*suggest.Source, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return suggest.NewSource(client, zaptest.NewLogger(t)), mr
}

func TestPublishAndRefresh(t *testing.T) {
	t.Parallel()

	source, mr := setupSource(t)
	ctx := t.Context()

	users := []relationship.UserState{
		{
			Username:     "grace",
			Relationship: relationship.Relationship{IsFollowedByViewer: true},
			Stats:        relationship.Stats{FollowersCount: 12},
		},
		{Username: "linus"},
	}
	require.NoError(t, source.Publish(ctx, "ada", users))
	assert.True(t, mr.Exists(suggest.KeyPrefix+"ada"))
	assert.Equal(t, suggest.SnapshotTTL, mr.TTL(suggest.KeyPrefix+"ada"))

	list := relationship.NewSuggestions()
	require.NoError(t, source.Refresh(ctx, "ada", list))
	assert.Equal(t, users, list.List())

	// A refreshed entry reconciles a mounted store
	store := relationship.NewStore(relationship.UserState{Username: "grace", Stats: relationship.Stats{FollowersCount: 11}})
	assert.Equal(t, []relationship.Action{relationship.ActionFollow}, relationship.Reconcile(store, list))
	assert.True(t, store.State().Relationship.IsFollowedByViewer)
}

func TestFetchMissing(t *testing.T) {
	t.Parallel()

	source, _ := setupSource(t)

	users, err := source.Fetch(t.Context(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRefreshKeepsListWithoutSnapshot(t *testing.T) {
	t.Parallel()

	source, _ := setupSource(t)
	ctx := t.Context()

	seeded := []relationship.UserState{{Username: "grace"}}
	list := relationship.NewSuggestions()
	list.Set(seeded)

	require.NoError(t, source.Refresh(ctx, "ada", list))
	assert.Equal(t, seeded, list.List())

	// A stored empty list still replaces it
	require.NoError(t, source.Publish(ctx, "ada", []relationship.UserState{}))
	require.NoError(t, source.Refresh(ctx, "ada", list))
	assert.Empty(t, list.List())
}

func TestFetchInvalid(t *testing.T) {
	t.Parallel()

	source, mr := setupSource(t)
	require.NoError(t, mr.Set(suggest.KeyPrefix+"ada", "not json"))

	_, err := source.Fetch(t.Context(), "ada")
	require.Error(t, err)
}
