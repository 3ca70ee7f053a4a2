package feed

import (
	"fmt"

	"github.com/feedsync/feedsync/pkg/utils"
)

// RetryPolicy decides what a paginator does when a fetch fails.
type RetryPolicy string

const (
	// PolicyFailClosed stops the stream on the first failure. The view
	// offers a reload that re-seeds the stream from scratch.
	PolicyFailClosed RetryPolicy = "fail_closed"
	// PolicyBackoff retries with exponential backoff before failing closed.
	PolicyBackoff RetryPolicy = "backoff"
)

// ParseRetryPolicy validates a policy name. An empty name is fail_closed.
func ParseRetryPolicy(name string) (RetryPolicy, error) {
	switch RetryPolicy(name) {
	case "", PolicyFailClosed:
		return PolicyFailClosed, nil
	case PolicyBackoff:
		return PolicyBackoff, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Options configures a paginator.
type Options struct {
	Policy RetryPolicy
	Retry  utils.RetryOptions
}

// DefaultOptions keeps the fail-closed behavior.
func DefaultOptions() Options {
	return Options{
		Policy: PolicyFailClosed,
		Retry:  utils.GetFeedRetryOptions(),
	}
}
