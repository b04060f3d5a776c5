package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	appconfiguration "github.com/backoffice/backend/internal/application/configuration"
	"github.com/backoffice/backend/internal/domain/configuration"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InvalidationAction is the kind of cache invalidation broadcast
type InvalidationAction string

const (
	// ActionInvalidateKey drops one scope/kind/code key
	ActionInvalidateKey InvalidationAction = "invalidate_key"
	// ActionInvalidateAll drops every cached entry
	ActionInvalidateAll InvalidationAction = "invalidate_all"
)

// InvalidationMessage is published to peer instances after a configuration
// write. The writer's local cache is invalidated synchronously before the
// write returns; this broadcast only keeps other processes from serving
// stale snapshots for the remainder of their TTL.
type InvalidationMessage struct {
	Action    InvalidationAction `json:"action"`
	TenantID  *uuid.UUID         `json:"tenant_id,omitempty"`
	Kind      string             `json:"kind,omitempty"`
	Code      string             `json:"code,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// Invalidator broadcasts cache invalidations to peer instances
type Invalidator interface {
	// Publish sends an invalidation to all subscribers
	Publish(ctx context.Context, msg InvalidationMessage) error
	// Close releases any resources held by the invalidator
	Close() error
}

// RedisInvalidator implements Invalidator over a Redis Pub/Sub channel
type RedisInvalidator struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	mu         sync.Mutex
	running    bool
}

// RedisInvalidatorOption is a functional option for the invalidator
type RedisInvalidatorOption func(*RedisInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) RedisInvalidatorOption {
	return func(i *RedisInvalidator) {
		i.channel = channel
	}
}

// WithInvalidatorLogger sets the logger
func WithInvalidatorLogger(logger *zap.Logger) RedisInvalidatorOption {
	return func(i *RedisInvalidator) {
		i.logger = logger
	}
}

// NewRedisInvalidator connects to Redis and returns an invalidator
func NewRedisInvalidator(addr, password string, db int, opts ...RedisInvalidatorOption) (*RedisInvalidator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	i := &RedisInvalidator{
		client:     client,
		ownsClient: true,
		channel:    "configuration:invalidations",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// NewRedisInvalidatorWithClient wraps an existing client. The caller retains
// ownership of the client and is responsible for closing it.
func NewRedisInvalidatorWithClient(client *redis.Client, opts ...RedisInvalidatorOption) *RedisInvalidator {
	i := &RedisInvalidator{
		client:  client,
		channel: "configuration:invalidations",
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Publish sends an invalidation message to all subscribers
func (i *RedisInvalidator) Publish(ctx context.Context, msg InvalidationMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}

	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("failed to publish cache invalidation",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Listen subscribes to the invalidation channel and applies received
// messages to the local cache until the context is cancelled or Close is
// called. It is intended to run in its own goroutine.
func (i *RedisInvalidator) Listen(ctx context.Context, local configuration.EntryCache) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return fmt.Errorf("invalidator is already listening")
	}
	ctx, i.cancelFn = context.WithCancel(ctx)
	i.running = true
	i.mu.Unlock()

	sub := i.client.Subscribe(ctx, i.channel)
	defer func() {
		_ = sub.Close()
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			var msg InvalidationMessage
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				i.logger.Warn("dropping malformed invalidation message", zap.Error(err))
				continue
			}
			switch msg.Action {
			case ActionInvalidateAll:
				local.InvalidateAll(ctx)
			case ActionInvalidateKey:
				local.Invalidate(ctx, msg.TenantID, msg.Kind, msg.Code)
			default:
				i.logger.Warn("unknown invalidation action", zap.String("action", string(msg.Action)))
			}
		}
	}
}

// Close stops listening and closes the client when owned
func (i *RedisInvalidator) Close() error {
	i.mu.Lock()
	if i.cancelFn != nil {
		i.cancelFn()
	}
	i.mu.Unlock()

	if i.ownsClient {
		return i.client.Close()
	}
	return nil
}

// Broadcast adapts an Invalidator to the configuration resolver's
// broadcaster interface
type Broadcast struct {
	invalidator Invalidator
}

// NewBroadcast creates a broadcaster over an invalidator
func NewBroadcast(invalidator Invalidator) *Broadcast {
	return &Broadcast{invalidator: invalidator}
}

// BroadcastInvalidateKey tells peers to drop one scope/kind/code key
func (b *Broadcast) BroadcastInvalidateKey(ctx context.Context, tenantID *uuid.UUID, kind, code string) error {
	return b.invalidator.Publish(ctx, InvalidationMessage{
		Action:   ActionInvalidateKey,
		TenantID: tenantID,
		Kind:     kind,
		Code:     code,
	})
}

// BroadcastInvalidateAll tells peers to drop every cached entry
func (b *Broadcast) BroadcastInvalidateAll(ctx context.Context) error {
	return b.invalidator.Publish(ctx, InvalidationMessage{Action: ActionInvalidateAll})
}

// Ensure Broadcast satisfies the resolver's broadcaster interface
var _ appconfiguration.InvalidationBroadcaster = (*Broadcast)(nil)

// NopInvalidator is used when no Redis broadcast is configured
type NopInvalidator struct{}

// Publish does nothing
func (NopInvalidator) Publish(context.Context, InvalidationMessage) error { return nil }

// Close does nothing
func (NopInvalidator) Close() error { return nil }

// Ensure implementations satisfy Invalidator
var (
	_ Invalidator = (*RedisInvalidator)(nil)
	_ Invalidator = NopInvalidator{}
)
