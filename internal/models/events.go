// internal/models/events.go
package models

import "time"

// PaymentCreatedEvent is published once per accepted payment. Card number and
// CVV appear only as peppered SHA-256 digests, never in clear form.
type PaymentCreatedEvent struct {
	PaymentID      string    `json:"payment_id"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	CardNumberHash string    `json:"card_number_hash"`
	ExpiryMonth    int       `json:"expiry_month"`
	ExpiryYear     int       `json:"expiry_year"`
	CVVHash        string    `json:"cvv_hash"`
	CreatedAt      time.Time `json:"created_at"`
	MerchantID     string    `json:"merchant_id"`
	MerchantName   string    `json:"merchant_name"`
}

// PaymentProcessedEvent is published after the acquirer round-trip completes.
type PaymentProcessedEvent struct {
	PaymentID     string    `json:"payment_id"`
	Status        string    `json:"status"`
	ProcessedAt   time.Time `json:"processed_at"`
	TransactionID string    `json:"transaction_id"`
	MerchantID    string    `json:"merchant_id"`
}
