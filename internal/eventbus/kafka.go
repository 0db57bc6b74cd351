// internal/eventbus/kafka.go
package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/paytently/payment-gateway/internal/metrics"
)

// KafkaBus publishes through a sarama SyncProducer and consumes through a
// consumer group. Run must be started after all Subscribe calls.
type KafkaBus struct {
	brokers  []string
	group    string
	config   *sarama.Config
	producer sarama.SyncProducer
	logger   *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewKafkaBus(brokers []string, group string, logger *zap.Logger) (*KafkaBus, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &KafkaBus{
		brokers:  brokers,
		group:    group,
		config:   config,
		producer: producer,
		logger:   logger,
		handlers: make(map[string][]Handler),
	}, nil
}

func (b *KafkaBus) Publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return &PublishError{Topic: topic, Err: err}
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	}

	if _, _, err := b.producer.SendMessage(msg); err != nil {
		return &PublishError{Topic: topic, Err: err}
	}

	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

func (b *KafkaBus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Run joins the consumer group and dispatches messages to the registered
// handlers until ctx is cancelled.
func (b *KafkaBus) Run(ctx context.Context) error {
	b.mu.RLock()
	topics := make([]string, 0, len(b.handlers))
	for topic := range b.handlers {
		topics = append(topics, topic)
	}
	b.mu.RUnlock()

	if len(topics) == 0 {
		<-ctx.Done()
		return nil
	}

	group, err := sarama.NewConsumerGroup(b.brokers, b.group, b.config)
	if err != nil {
		return err
	}
	defer group.Close()

	for {
		if err := group.Consume(ctx, topics, &groupHandler{bus: b}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Error("consumer group session ended", zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (b *KafkaBus) Close() error {
	return b.producer.Close()
}

func (b *KafkaBus) handlersFor(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	return handlers
}

type groupHandler struct {
	bus *KafkaBus
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		for _, handler := range h.bus.handlersFor(msg.Topic) {
			if err := handler(session.Context(), msg.Value); err != nil {
				h.bus.logger.Error("event handler failed",
					zap.String("topic", msg.Topic),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
		// At-least-once: the message is acknowledged even when a handler
		// failed, matching the no-retry delivery contract.
		session.MarkMessage(msg, "")
	}
	return nil
}
