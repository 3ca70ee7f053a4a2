package push

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/feedsync/feedsync/pkg/utils"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// DefaultChannelPrefix namespaces the Redis pub/sub channels.
// Channels are formatted as "feedsync:{event}".
const DefaultChannelPrefix = "feedsync:"

// ResubscribeDelay is the pause before resubscribing after a dropped connection.
const ResubscribeDelay = time.Second

// envelope is the wire form of an event on Redis.
type envelope struct {
	Origin  string `json:"origin"`
	Payload []byte `json:"payload"`
}

// Redis is a Channel backed by Redis pub/sub. A single pattern subscription
// receives every event, which is then dispatched to local handlers by name.
type Redis struct {
	client   rueidis.Client
	registry *registry
	logger   *zap.Logger
	prefix   string
	origin   string
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewRedis creates a disconnected Redis channel. Each instance gets a
// random origin so receivers can tell their own events apart.
func NewRedis(client rueidis.Client, prefix string, logger *zap.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}

	return &Redis{
		client:   client,
		registry: newRegistry(),
		logger:   logger.Named("push_redis"),
		prefix:   prefix,
		origin:   uuid.New().String(),
	}
}

// Origin returns the identifier stamped on events emitted by this instance.
func (r *Redis) Origin() string {
	return r.origin
}

// Connect starts the pattern subscription in the background.
func (r *Redis) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return ErrAlreadyConnected
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.receive(subCtx, r.done)

	r.logger.Info("Connected push channel", zap.String("origin", r.origin), zap.String("prefix", r.prefix))
	return nil
}

// receive holds the subscription until ctx ends, resubscribing after a
// dropped connection.
func (r *Redis) receive(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := r.client.Receive(ctx, r.client.B().Psubscribe().Pattern(r.prefix+"*").Build(),
			func(msg rueidis.PubSubMessage) {
				r.handleMessage(msg.Channel, msg.Message)
			})
		if utils.ContextGuard(ctx) || errors.Is(err, rueidis.ErrClosing) {
			return
		}

		r.logger.Warn("Push subscription ended, resubscribing",
			zap.Duration("delay", ResubscribeDelay),
			zap.Error(err))

		if !utils.ErrorSleep(ctx, ResubscribeDelay, r.logger, "push receiver") {
			return
		}
	}
}

func (r *Redis) handleMessage(channel, message string) {
	name := strings.TrimPrefix(channel, r.prefix)

	var env envelope
	if err := sonic.UnmarshalString(message, &env); err != nil {
		r.logger.Warn("Dropping malformed push message",
			zap.String("channel", channel),
			zap.Error(err))
		return
	}

	delivered := r.registry.dispatch(Event{Name: name, Origin: env.Origin, Payload: env.Payload})
	r.logger.Debug("Received push event",
		zap.String("event", name),
		zap.String("origin", env.Origin),
		zap.Int("handlers", delivered))
}

// Emit publishes payload under event.
func (r *Redis) Emit(ctx context.Context, event string, payload any) error {
	r.mu.Lock()
	connected := r.cancel != nil
	r.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}

	data, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}

	message, err := sonic.MarshalString(envelope{Origin: r.origin, Payload: data})
	if err != nil {
		return err
	}

	err = r.client.Do(ctx, r.client.B().Publish().Channel(r.prefix+event).Message(message).Build()).Error()
	if err != nil {
		r.logger.Error("Failed to publish push event", zap.String("event", event), zap.Error(err))
		return err
	}

	return nil
}

// On registers a handler for event.
func (r *Redis) On(event string, handler Handler) func() {
	return r.registry.on(event, handler)
}

// Disconnect cancels the subscription and waits for it to end.
// Safe to call when not connected.
func (r *Redis) Disconnect() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	r.logger.Info("Disconnected push channel", zap.String("origin", r.origin))
	return nil
}
