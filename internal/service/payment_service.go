// internal/service/payment_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paytently/payment-gateway/internal/card"
	"github.com/paytently/payment-gateway/internal/eventbus"
	"github.com/paytently/payment-gateway/internal/metrics"
	"github.com/paytently/payment-gateway/internal/models"
	"github.com/paytently/payment-gateway/internal/repository"
)

type PaymentService struct {
	repo      repository.PaymentRepository
	publisher eventbus.Publisher
	protector *card.Protector
	logger    *zap.Logger
}

func NewPaymentService(repo repository.PaymentRepository, publisher eventbus.Publisher, protector *card.Protector, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		repo:      repo,
		publisher: publisher,
		protector: protector,
		logger:    logger,
	}
}

// CreatePayment validates the request, stores a Pending record and publishes
// a payment.created event carrying only hashed card data. Validation failures
// leave no trace; a publish failure after the store write leaves the record
// Pending with no event sent.
func (s *PaymentService) CreatePayment(ctx context.Context, principal models.APIKeyPrincipal, req *models.CreatePaymentRequest) (*models.Payment, error) {
	if verr := validateRequest(req); verr != nil {
		metrics.ValidationFailures.WithLabelValues(verr.Field).Inc()
		return nil, verr
	}

	payment := &models.Payment{
		ID:               uuid.New().String(),
		Amount:           req.Amount,
		Currency:         req.Currency,
		MaskedCardNumber: card.Mask(req.CardNumber),
		Status:           models.PaymentStatusPending,
		CreatedAt:        time.Now().UTC(),
		MerchantID:       principal.MerchantID,
		MerchantName:     principal.MerchantName,
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	cardNumberHash, err := s.protector.Hash(req.CardNumber)
	if err != nil {
		return nil, fmt.Errorf("hash card number: %w", err)
	}
	cvvHash, err := s.protector.Hash(req.CVV)
	if err != nil {
		return nil, fmt.Errorf("hash cvv: %w", err)
	}

	event := models.PaymentCreatedEvent{
		PaymentID:      payment.ID,
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		CardNumberHash: cardNumberHash,
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     req.ExpiryYear,
		CVVHash:        cvvHash,
		CreatedAt:      payment.CreatedAt,
		MerchantID:     payment.MerchantID,
		MerchantName:   payment.MerchantName,
	}

	if err := s.publisher.Publish(ctx, eventbus.TopicPaymentCreated, event); err != nil {
		s.logger.Error("failed to publish payment created event",
			zap.String("payment_id", payment.ID),
			zap.Error(err))
		return nil, err
	}

	metrics.PaymentsCreated.Inc()
	s.logger.Info("payment created",
		zap.String("payment_id", payment.ID),
		zap.String("merchant_id", payment.MerchantID),
		zap.String("currency", payment.Currency))

	return payment, nil
}

// GetPayment returns the stored record, or repository.ErrPaymentNotFound.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func validateRequest(req *models.CreatePaymentRequest) *models.ValidationError {
	if req.Amount <= 0 {
		return &models.ValidationError{Field: "amount", Reason: "must be greater than 0"}
	}
	if strings.TrimSpace(req.Currency) == "" || len(req.Currency) != 3 {
		return &models.ValidationError{Field: "currency", Reason: "must be a 3-letter code"}
	}
	if !card.ValidNumber(req.CardNumber) {
		return &models.ValidationError{Field: "card_number", Reason: "invalid card number"}
	}
	if !card.ValidExpiry(req.ExpiryMonth, req.ExpiryYear) {
		return &models.ValidationError{Field: "expiry", Reason: "card has expired or expiry date is invalid"}
	}
	if strings.TrimSpace(req.CVV) == "" || len(req.CVV) < 3 || len(req.CVV) > 4 {
		return &models.ValidationError{Field: "cvv", Reason: "must be 3 or 4 characters"}
	}
	return nil
}
