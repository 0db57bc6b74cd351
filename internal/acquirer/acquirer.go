// internal/acquirer/acquirer.go
package acquirer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paytently/payment-gateway/internal/models"
)

type Result struct {
	Status        string
	TransactionID string
	ProcessedAt   time.Time
}

// Acquirer settles a created payment with the card network. The production
// integration is out of scope; implementations stand in for it.
type Acquirer interface {
	Process(ctx context.Context, event models.PaymentCreatedEvent) (Result, error)
}

// Simulator models the acquirer round-trip as a fixed delay followed by an
// unconditional completion.
type Simulator struct {
	delay time.Duration
}

func NewSimulator(delay time.Duration) *Simulator {
	if delay <= 0 {
		delay = time.Second
	}
	return &Simulator{delay: delay}
}

func (s *Simulator) Process(ctx context.Context, _ models.PaymentCreatedEvent) (Result, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	return Result{
		Status:        string(models.PaymentStatusCompleted),
		TransactionID: uuid.New().String(),
		ProcessedAt:   time.Now().UTC(),
	}, nil
}
