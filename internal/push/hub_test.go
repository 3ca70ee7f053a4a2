package push_test

import (
	"testing"

	"github.com/feedsync/feedsync/internal/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubEmit(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	hub := push.NewHub("test")

	var received []push.NewPostPayload
	off := hub.On(push.EventNewGlobalPost, func(evt push.Event) {
		var payload push.NewPostPayload
		require.NoError(t, evt.Decode(&payload))
		assert.Equal(t, "test", evt.Origin)
		received = append(received, payload)
	})

	err := hub.Emit(ctx, push.EventNewGlobalPost, push.NewPostPayload{PostID: 1})
	require.ErrorIs(t, err, push.ErrNotConnected)

	require.NoError(t, hub.Connect(ctx))
	require.ErrorIs(t, hub.Connect(ctx), push.ErrAlreadyConnected)

	require.NoError(t, hub.Emit(ctx, push.EventNewGlobalPost, push.NewPostPayload{PostID: 2, Author: "ada"}))
	require.NoError(t, hub.Emit(ctx, push.EventNewFollowingPost, push.NewPostPayload{PostID: 3}))

	require.Len(t, received, 1)
	assert.Equal(t, push.NewPostPayload{PostID: 2, Author: "ada"}, received[0])

	off()
	require.NoError(t, hub.Emit(ctx, push.EventNewGlobalPost, push.NewPostPayload{PostID: 4}))
	assert.Len(t, received, 1)

	require.NoError(t, hub.Disconnect())
	require.ErrorIs(t, hub.Emit(ctx, push.EventNewGlobalPost, nil), push.ErrNotConnected)
}
