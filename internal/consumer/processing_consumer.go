// internal/consumer/processing_consumer.go
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/paytently/payment-gateway/internal/acquirer"
	"github.com/paytently/payment-gateway/internal/eventbus"
	"github.com/paytently/payment-gateway/internal/metrics"
	"github.com/paytently/payment-gateway/internal/models"
)

// ProcessingConsumer reacts to payment.created events: it runs the acquirer
// round-trip and publishes payment.processed. It never touches the payment
// store.
type ProcessingConsumer struct {
	acquirer  acquirer.Acquirer
	publisher eventbus.Publisher
	logger    *zap.Logger
}

func NewProcessingConsumer(acq acquirer.Acquirer, publisher eventbus.Publisher, logger *zap.Logger) *ProcessingConsumer {
	return &ProcessingConsumer{
		acquirer:  acq,
		publisher: publisher,
		logger:    logger,
	}
}

func (c *ProcessingConsumer) HandlePaymentCreated(ctx context.Context, payload []byte) error {
	var event models.PaymentCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode payment created event: %w", err)
	}

	c.logger.Info("processing payment",
		zap.String("payment_id", event.PaymentID),
		zap.String("merchant_id", event.MerchantID))

	result, err := c.acquirer.Process(ctx, event)
	if err != nil {
		return fmt.Errorf("acquirer: %w", err)
	}

	processed := models.PaymentProcessedEvent{
		PaymentID:     event.PaymentID,
		Status:        result.Status,
		ProcessedAt:   result.ProcessedAt,
		TransactionID: result.TransactionID,
		MerchantID:    event.MerchantID,
	}

	if err := c.publisher.Publish(ctx, eventbus.TopicPaymentProcessed, processed); err != nil {
		return err
	}

	metrics.PaymentsProcessed.Inc()
	c.logger.Info("payment processed",
		zap.String("payment_id", event.PaymentID),
		zap.String("transaction_id", result.TransactionID),
		zap.String("status", result.Status))

	return nil
}
