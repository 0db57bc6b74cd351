// internal/eventbus/memory.go
package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/paytently/payment-gateway/internal/metrics"
)

// MemoryBus is an in-process topic bus. Delivery is asynchronous: Publish
// hands the payload to each subscriber on its own goroutine and returns
// without waiting, so publishing never blocks the intake path.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	logger   *zap.Logger
}

func NewMemoryBus(logger *zap.Logger) *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (b *MemoryBus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[topic] = append(b.handlers[topic], handler)
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return &PublishError{Topic: topic, Err: err}
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	// Delivery outlives the publishing request, so detach its cancellation.
	deliveryCtx := context.WithoutCancel(ctx)

	for _, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			if err := h(deliveryCtx, payload); err != nil {
				b.logger.Error("event handler failed",
					zap.String("topic", topic),
					zap.Error(err))
			}
		}(handler)
	}

	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Drain blocks until all in-flight deliveries have finished.
func (b *MemoryBus) Drain() {
	b.wg.Wait()
}
