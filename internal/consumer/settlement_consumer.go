// internal/consumer/settlement_consumer.go
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/paytently/payment-gateway/internal/models"
	"github.com/paytently/payment-gateway/internal/repository"
)

// SettlementConsumer updates the stored record when payment.processed
// arrives. It is an optional extension: without it, records stay Pending in
// the store even after processing, mirroring the upstream pipeline behavior.
// Wired only when the settlement feature flag is enabled.
type SettlementConsumer struct {
	repo   repository.PaymentRepository
	logger *zap.Logger
}

func NewSettlementConsumer(repo repository.PaymentRepository, logger *zap.Logger) *SettlementConsumer {
	return &SettlementConsumer{
		repo:   repo,
		logger: logger,
	}
}

func (c *SettlementConsumer) HandlePaymentProcessed(ctx context.Context, payload []byte) error {
	var event models.PaymentProcessedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode payment processed event: %w", err)
	}

	err := c.repo.MarkProcessed(ctx, event.PaymentID, models.PaymentStatus(event.Status), event.ProcessedAt)
	if err != nil {
		// The bus fans out to every node; this node may not hold the record.
		if errors.Is(err, repository.ErrPaymentNotFound) {
			c.logger.Warn("processed event for unknown payment",
				zap.String("payment_id", event.PaymentID))
			return nil
		}
		return fmt.Errorf("mark payment processed: %w", err)
	}

	c.logger.Info("payment settled",
		zap.String("payment_id", event.PaymentID),
		zap.String("status", event.Status))

	return nil
}
