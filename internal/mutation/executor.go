// Package mutation applies state changes optimistically and rolls them back
// when the server call fails.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feedsync/feedsync/internal/push"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultBannerDuration is how long a failure banner stays visible.
const DefaultBannerDuration = 3 * time.Second

// Transaction is one activation of a control. All closures are built once,
// at activation, from the state seen at that moment.
type Transaction struct {
	// Name identifies the action in logs and traces.
	Name string
	// Apply writes the optimistic state. An error aborts without changes.
	Apply func() error
	// Commit performs the server call.
	Commit func(ctx context.Context) (bool, error)
	// Rollback restores the state captured by Apply.
	Rollback func()
	// OnSuccess runs after a successful commit. Optional.
	OnSuccess func(ctx context.Context)
}

// Executor runs transactions against guards.
type Executor struct {
	emitter        push.Emitter
	tracer         trace.Tracer
	logger         *zap.Logger
	bannerDuration time.Duration
}

// NewExecutor creates an executor. A zero bannerDuration uses DefaultBannerDuration.
func NewExecutor(emitter push.Emitter, bannerDuration time.Duration, logger *zap.Logger) *Executor {
	if bannerDuration <= 0 {
		bannerDuration = DefaultBannerDuration
	}

	return &Executor{
		emitter:        emitter,
		tracer:         otel.Tracer("github.com/feedsync/feedsync/internal/mutation"),
		logger:         logger.Named("mutation"),
		bannerDuration: bannerDuration,
	}
}

// Emitter returns the push emitter used for success notifications.
func (e *Executor) Emitter() push.Emitter {
	return e.emitter
}

// Run executes tx under g. At most one transaction per guard is in flight;
// a second call while submitting returns ErrInFlight and changes nothing.
// There is no timeout or retry here; a failure rolls back and stops.
func (e *Executor) Run(ctx context.Context, g *Guard, tx Transaction) error {
	if !g.begin() {
		return ErrInFlight
	}

	ctx, span := e.tracer.Start(ctx, "mutation."+tx.Name)
	defer span.End()

	if err := tx.Apply(); err != nil {
		g.finish(false)
		e.fail(g, span, tx.Name, err)
		return err
	}

	ok, err := tx.Commit(ctx)
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	case !ok:
		err = ErrServerRejected
	}

	if err != nil {
		tx.Rollback()
		g.finish(false)
		e.fail(g, span, tx.Name, err)
		return err
	}

	g.finish(true)
	span.SetStatus(codes.Ok, "")

	if tx.OnSuccess != nil {
		tx.OnSuccess(ctx)
	}

	e.logger.Debug("Mutation committed", zap.String("action", tx.Name))
	return nil
}

// fail records err and shows the banner. Every failure kind is treated alike.
func (e *Executor) fail(g *Guard, span trace.Span, name string, err error) {
	g.showBanner(err, e.bannerDuration)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("mutation.rolled_back", !errors.Is(err, ErrAlreadyInDesiredState)))

	e.logger.Warn("Mutation failed",
		zap.String("action", name),
		zap.Error(err))
}

// notify emits a notify_user event, logging rather than failing on error.
func (e *Executor) notify(ctx context.Context, payload push.NotifyPayload) {
	if e.emitter == nil || payload.Recipient == "" {
		return
	}

	if err := e.emitter.Emit(ctx, push.EventNotifyUser, payload); err != nil {
		e.logger.Warn("Failed to emit notification",
			zap.String("recipient", payload.Recipient),
			zap.String("reason", payload.Reason),
			zap.Error(err))
	}
}
