// internal/repository/payment_repository.go
package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/paytently/payment-gateway/internal/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	MarkProcessed(ctx context.Context, id string, status models.PaymentStatus, processedAt time.Time) error
}

// InMemoryPaymentRepository keeps payments in process memory for the lifetime
// of the process. There is no eviction and no durability; restarting the
// process loses all records.
type InMemoryPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]models.Payment
}

func NewInMemoryPaymentRepository() *InMemoryPaymentRepository {
	return &InMemoryPaymentRepository{
		payments: make(map[string]models.Payment),
	}
}

// Create stores a copy of the record, so a payment becomes visible to readers
// only as a whole.
func (r *InMemoryPaymentRepository) Create(_ context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payments[payment.ID] = *payment
	return nil
}

func (r *InMemoryPaymentRepository) GetByID(_ context.Context, id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}

	return &payment, nil
}

// MarkProcessed is used only by the settlement extension; the default
// pipeline never mutates a stored record.
func (r *InMemoryPaymentRepository) MarkProcessed(_ context.Context, id string, status models.PaymentStatus, processedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok {
		return ErrPaymentNotFound
	}

	payment.Status = status
	payment.ProcessedAt = &processedAt
	r.payments[id] = payment
	return nil
}
