package push_test

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/feedsync/feedsync/internal/push"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupRedis(t *testing.T) (rueidis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestRedisChannelRoundTrip(t *testing.T) {
	t.Parallel()

	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := t.Context()
	logger := zaptest.NewLogger(t)

	receiver := push.NewRedis(client, "", logger)
	sender := push.NewRedis(client, "", logger)

	var (
		mu      sync.Mutex
		payload push.NotifyPayload
		origin  string
	)
	receiver.On(push.EventNotifyUser, func(evt push.Event) {
		mu.Lock()
		defer mu.Unlock()
		origin = evt.Origin
		_ = evt.Decode(&payload)
	})

	require.ErrorIs(t, sender.Emit(ctx, push.EventNotifyUser, nil), push.ErrNotConnected)

	require.NoError(t, receiver.Connect(ctx))
	require.ErrorIs(t, receiver.Connect(ctx), push.ErrAlreadyConnected)
	require.NoError(t, sender.Connect(ctx))

	sent := push.NotifyPayload{Recipient: "ada", Reason: "like", PostID: 42}

	// The subscription starts asynchronously, so publish until it is seen
	assert.Eventually(t, func() bool {
		if err := sender.Emit(ctx, push.EventNotifyUser, sent); err != nil {
			return false
		}

		mu.Lock()
		defer mu.Unlock()
		return payload == sent
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, sender.Origin(), origin)
	assert.NotEqual(t, receiver.Origin(), origin)
	mu.Unlock()

	require.NoError(t, receiver.Disconnect())
	require.NoError(t, receiver.Disconnect())
	require.NoError(t, sender.Disconnect())
}
