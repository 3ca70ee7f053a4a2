package utils_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feedsync/feedsync/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTemporary = errors.New("temporary error")
	errFatal     = errors.New("fatal error")
)

func testRetryOptions() utils.RetryOptions {
	return utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
		MaxRetries:      3,
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		operation     func() func() (int, error)
		expectedCalls int
		expectedValue int
		expectedErr   error
	}{
		{
			name: "succeeds first try",
			operation: func() func() (int, error) {
				return func() (int, error) { return 7, nil }
			},
			expectedCalls: 1,
			expectedValue: 7,
		},
		{
			name: "succeeds after retries",
			operation: func() func() (int, error) {
				count := 0
				return func() (int, error) {
					count++
					if count < 3 {
						return 0, errTemporary
					}
					return count, nil
				}
			},
			expectedCalls: 3,
			expectedValue: 3,
		},
		{
			name: "fails all retries",
			operation: func() func() (int, error) {
				return func() (int, error) { return 0, errTemporary }
			},
			expectedCalls: 4, // Initial + 3 retries
			expectedErr:   errTemporary,
		},
		{
			name: "permanent error stops immediately",
			operation: func() func() (int, error) {
				return func() (int, error) { return 0, utils.Permanent(errFatal) }
			},
			expectedCalls: 1,
			expectedErr:   errFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			op := tt.operation()
			wrapped := func() (int, error) {
				calls++
				return op()
			}

			value, err := utils.WithRetry(t.Context(), wrapped, testRetryOptions())

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedValue, value)
			}

			assert.Equal(t, tt.expectedCalls, calls)
		})
	}
}

func TestWithRetryContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	calls := 0
	_, err := utils.WithRetry(ctx, func() (int, error) {
		calls++
		return 0, errTemporary
	}, utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
		MaxRetries:      5,
	})

	require.Error(t, err)
	assert.Less(t, calls, 5)
}

func TestGetFeedRetryOptions(t *testing.T) {
	t.Parallel()

	opts := utils.GetFeedRetryOptions()
	assert.Positive(t, opts.MaxRetries)
	assert.Less(t, opts.InitialInterval, opts.MaxInterval)
}
