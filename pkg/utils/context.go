package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SleepResult represents the outcome of a context-aware sleep operation.
type SleepResult int

const (
	// SleepCompleted indicates the sleep duration completed normally.
	SleepCompleted SleepResult = iota
	// SleepCancelled indicates the context was cancelled during sleep.
	SleepCancelled
)

// ContextSleep sleeps for the specified duration while respecting context cancellation.
func ContextSleep(ctx context.Context, duration time.Duration) SleepResult {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return SleepCompleted
	case <-ctx.Done():
		return SleepCancelled
	}
}

// ContextGuard reports whether ctx is already cancelled.
func ContextGuard(ctx context.Context) bool {
	return ctx.Err() != nil
}

// ErrorSleep pauses after a failure before the caller retries.
// Returns false, after logging, if ctx was cancelled during the pause.
func ErrorSleep(ctx context.Context, duration time.Duration, logger *zap.Logger, name string) bool {
	if ContextSleep(ctx, duration) == SleepCancelled {
		if logger != nil {
			logger.Info("Context cancelled during error wait, stopping " + name)
		}
		return false
	}
	return true
}
