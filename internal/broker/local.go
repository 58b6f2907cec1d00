package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"storefront/internal/util"

	"go.uber.org/zap"
)

// LocalBus delivers events to in-process handlers when Kafka is disabled.
// Each delivery runs on its own goroutine, detached from the publisher's context.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []MessageHandler
	wg       sync.WaitGroup
	logger   *zap.Logger
}

func NewLocalBus() *LocalBus {
	return &LocalBus{logger: util.GetLogger()}
}

// Subscribe registers a handler for every subsequently published event
func (b *LocalBus) Subscribe(handler MessageHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// PublishEvent implements MessageWriter
func (b *LocalBus) PublishEvent(ctx context.Context, key string, event interface{}) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := encodeMessage(key, eventBytes)

	b.mu.RLock()
	handlers := append([]MessageHandler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.wg.Add(1)
		go func(h MessageHandler) {
			defer b.wg.Done()
			if err := h(context.Background(), msg); err != nil {
				b.logger.Error("Local event handler failed", zap.String("key", key), zap.Error(err))
			}
		}(h)
	}
	return nil
}

// Wait blocks until every in-flight delivery has returned
func (b *LocalBus) Wait() {
	b.wg.Wait()
}

var (
	_ MessageWriter = (*LocalBus)(nil)
	_ MessageWriter = (*Producer)(nil)
)
