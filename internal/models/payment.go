// internal/models/payment.go
package models

import (
	"fmt"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusCompleted PaymentStatus = "Completed"
)

type Payment struct {
	ID               string        `json:"payment_id"`
	Amount           float64       `json:"amount"`
	Currency         string        `json:"currency"`
	MaskedCardNumber string        `json:"masked_card_number"`
	Status           PaymentStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	ProcessedAt      *time.Time    `json:"processed_at,omitempty"`
	MerchantID       string        `json:"merchant_id"`
	MerchantName     string        `json:"merchant_name"`
}

type CreatePaymentRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	CardNumber  string  `json:"card_number"`
	ExpiryMonth int     `json:"expiry_month"`
	ExpiryYear  int     `json:"expiry_year"`
	CVV         string  `json:"cvv"`
}

// APIKeyPrincipal is the authenticated caller, resolved from the presented
// API key before the payment core runs.
type APIKeyPrincipal struct {
	MerchantID   string
	MerchantName string
}

// ValidationError reports the first request field that failed validation.
// The reason is safe to return to the caller; it never contains card data.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
