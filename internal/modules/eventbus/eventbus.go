// Package eventbus fans lifecycle events out to in-process subscribers.
package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/quillmark/core/internal/modules/publishing"
	pkgredis "github.com/quillmark/core/internal/pkg/redis"
	"go.uber.org/zap"
)

// Handler consumes one lifecycle event. Handlers run on their own goroutine
// and must not assume ordering across posts.
type Handler func(event publishing.LifecycleEvent)

// Bus is a fire-and-forget in-process event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber without blocking the
// caller. A panicking subscriber never takes down the publisher.
func (b *Bus) Publish(event publishing.LifecycleEvent) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event subscriber panicked",
						zap.String("event", event.EventName()),
						zap.Any("panic", r))
				}
			}()
			h(event)
		}(h)
	}
}

// RedisChannel is the pub/sub channel lifecycle events are fanned out on.
const RedisChannel = "quillmark:events"

type redisEnvelope struct {
	Event   string      `json:"event"`
	PostID  string      `json:"post_id"`
	Payload interface{} `json:"payload"`
}

// NewRedisFanout returns a handler that republishes events to the Redis
// pub/sub channel so sibling processes can react to them.
func NewRedisFanout(rc *pkgredis.Client, logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(event publishing.LifecycleEvent) {
		payload, err := json.Marshal(redisEnvelope{
			Event:   event.EventName(),
			PostID:  event.PostID(),
			Payload: event,
		})
		if err != nil {
			logger.Warn("event marshal failed", zap.String("event", event.EventName()), zap.Error(err))
			return
		}
		if err := rc.Publish(context.Background(), RedisChannel, payload); err != nil {
			logger.Warn("redis event publish failed", zap.String("event", event.EventName()), zap.Error(err))
		}
	}
}
