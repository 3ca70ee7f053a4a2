package setup_test

import (
	"testing"
	"time"

	"github.com/feedsync/feedsync/internal/feed"
	"github.com/feedsync/feedsync/internal/setup"
	"github.com/feedsync/feedsync/internal/setup/config"
	"github.com/feedsync/feedsync/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		opts, err := setup.FeedOptions(&config.Config{})
		require.NoError(t, err)
		assert.Equal(t, feed.PolicyFailClosed, opts.Policy)
		assert.Equal(t, utils.GetFeedRetryOptions(), opts.Retry)
	})

	t.Run("backoff overrides", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{
			Common: config.CommonConfig{Retry: config.Retry{MaxRetries: 5, Delay: 100, MaxDelay: 2000}},
			Client: config.ClientConfig{Feed: config.Feed{RetryPolicy: "backoff"}},
		}

		opts, err := setup.FeedOptions(cfg)
		require.NoError(t, err)
		assert.Equal(t, feed.PolicyBackoff, opts.Policy)
		assert.Equal(t, uint64(5), opts.Retry.MaxRetries)
		assert.Equal(t, 100*time.Millisecond, opts.Retry.InitialInterval)
		assert.Equal(t, 2*time.Second, opts.Retry.MaxInterval)
	})

	t.Run("unknown policy", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{Client: config.ClientConfig{Feed: config.Feed{RetryPolicy: "sometimes"}}}
		_, err := setup.FeedOptions(cfg)
		require.ErrorIs(t, err, feed.ErrUnknownPolicy)
	})
}
