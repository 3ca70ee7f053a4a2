package redis_test

import (
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/feedsync/feedsync/internal/redis"
	"github.com/feedsync/feedsync/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestManagerClientsPerDatabase(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	m := redis.NewManager(&config.Redis{Host: mr.Host(), Port: port, DisableCache: true}, zaptest.NewLogger(t))
	defer m.Close()

	push, err := m.GetClient(redis.PushDBIndex)
	require.NoError(t, err)

	again, err := m.GetClient(redis.PushDBIndex)
	require.NoError(t, err)
	assert.Same(t, push, again)

	suggestions, err := m.GetClient(redis.SuggestionsDBIndex)
	require.NoError(t, err)

	ctx := t.Context()
	require.NoError(t, suggestions.Do(ctx, suggestions.B().Set().Key("k").Value("v").Build()).Error())

	mr.Select(redis.SuggestionsDBIndex)
	assert.True(t, mr.Exists("k"))
	mr.Select(redis.PushDBIndex)
	assert.False(t, mr.Exists("k"))
}
