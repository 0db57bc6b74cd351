// internal/service/payment_service_test.go
package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/paytently/payment-gateway/internal/card"
	"github.com/paytently/payment-gateway/internal/eventbus"
	"github.com/paytently/payment-gateway/internal/models"
	"github.com/paytently/payment-gateway/internal/repository"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedEvent
	publishFn func(topic string, event any) error
}

type publishedEvent struct {
	topic string
	event any
}

func (f *fakePublisher) Publish(_ context.Context, topic string, event any) error {
	if f.publishFn != nil {
		if err := f.publishFn(topic, event); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedEvent{topic: topic, event: event})
	return nil
}

func (f *fakePublisher) events() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedEvent, len(f.published))
	copy(out, f.published)
	return out
}

type countingRepo struct {
	repository.PaymentRepository
	mu      sync.Mutex
	creates int
}

func (r *countingRepo) Create(ctx context.Context, p *models.Payment) error {
	r.mu.Lock()
	r.creates++
	r.mu.Unlock()
	return r.PaymentRepository.Create(ctx, p)
}

func validRequest() *models.CreatePaymentRequest {
	return &models.CreatePaymentRequest{
		Amount:      100.50,
		Currency:    "USD",
		CardNumber:  "4111111111111111",
		ExpiryMonth: 12,
		ExpiryYear:  time.Now().UTC().Year() + 1,
		CVV:         "123",
	}
}

func newTestService(publisher eventbus.Publisher) (*PaymentService, *repository.InMemoryPaymentRepository) {
	repo := repository.NewInMemoryPaymentRepository()
	svc := NewPaymentService(repo, publisher, card.NewProtector("unit-test-pepper"), zap.NewNop())
	return svc, repo
}

func TestCreatePayment(t *testing.T) {
	publisher := &fakePublisher{}
	svc, _ := newTestService(publisher)

	principal := models.APIKeyPrincipal{MerchantID: "merchant-1", MerchantName: "Test Merchant 1"}
	req := validRequest()

	payment, err := svc.CreatePayment(context.Background(), principal, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payment.ID == "" {
		t.Errorf("expected a generated payment ID")
	}
	if payment.Status != models.PaymentStatusPending {
		t.Errorf("status = %q, want %q", payment.Status, models.PaymentStatusPending)
	}
	if payment.MaskedCardNumber != card.Mask(req.CardNumber) {
		t.Errorf("masked card = %q, want %q", payment.MaskedCardNumber, card.Mask(req.CardNumber))
	}
	if payment.MerchantID != "merchant-1" || payment.MerchantName != "Test Merchant 1" {
		t.Errorf("merchant fields not propagated: %+v", payment)
	}
	if payment.CreatedAt.IsZero() || payment.CreatedAt.Location() != time.UTC {
		t.Errorf("created at should be a UTC timestamp, got %v", payment.CreatedAt)
	}
	if payment.ProcessedAt != nil {
		t.Errorf("new payment should have no processed timestamp")
	}

	events := publisher.events()
	if len(events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(events))
	}
	if events[0].topic != eventbus.TopicPaymentCreated {
		t.Errorf("topic = %q, want %q", events[0].topic, eventbus.TopicPaymentCreated)
	}

	created, ok := events[0].event.(models.PaymentCreatedEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", events[0].event)
	}
	if created.PaymentID != payment.ID {
		t.Errorf("event payment ID = %q, want %q", created.PaymentID, payment.ID)
	}
	if created.CardNumberHash == req.CardNumber || created.CardNumberHash == "" {
		t.Errorf("event must carry a hashed card number, got %q", created.CardNumberHash)
	}
	if created.CVVHash == req.CVV || created.CVVHash == "" {
		t.Errorf("event must carry a hashed CVV, got %q", created.CVVHash)
	}
}

func TestCreatePaymentThenGet(t *testing.T) {
	svc, _ := newTestService(&fakePublisher{})

	payment, err := svc.CreatePayment(context.Background(), models.APIKeyPrincipal{MerchantID: "merchant-1"}, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetPayment(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got != *payment {
		t.Errorf("GetPayment returned %+v, want %+v", got, payment)
	}
}

func TestGetPaymentUnknownID(t *testing.T) {
	svc, _ := newTestService(&fakePublisher{})

	_, err := svc.GetPayment(context.Background(), "missing")
	if !errors.Is(err, repository.ErrPaymentNotFound) {
		t.Errorf("error = %v, want ErrPaymentNotFound", err)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*models.CreatePaymentRequest)
		wantField string
	}{
		{
			name:      "Zero amount",
			mutate:    func(r *models.CreatePaymentRequest) { r.Amount = 0 },
			wantField: "amount",
		},
		{
			name:      "Negative amount",
			mutate:    func(r *models.CreatePaymentRequest) { r.Amount = -5 },
			wantField: "amount",
		},
		{
			name:      "Currency too long",
			mutate:    func(r *models.CreatePaymentRequest) { r.Currency = "USDT" },
			wantField: "currency",
		},
		{
			name:      "Currency blank",
			mutate:    func(r *models.CreatePaymentRequest) { r.Currency = "   " },
			wantField: "currency",
		},
		{
			name:      "Broken card checksum",
			mutate:    func(r *models.CreatePaymentRequest) { r.CardNumber = "4111111111111112" },
			wantField: "card_number",
		},
		{
			name:      "Expired card",
			mutate:    func(r *models.CreatePaymentRequest) { r.ExpiryYear = 2020 },
			wantField: "expiry",
		},
		{
			name:      "Month out of range",
			mutate:    func(r *models.CreatePaymentRequest) { r.ExpiryMonth = 13 },
			wantField: "expiry",
		},
		{
			name:      "CVV too short",
			mutate:    func(r *models.CreatePaymentRequest) { r.CVV = "12" },
			wantField: "cvv",
		},
		{
			name:      "CVV too long",
			mutate:    func(r *models.CreatePaymentRequest) { r.CVV = "12345" },
			wantField: "cvv",
		},
		{
			name:      "CVV blank",
			mutate:    func(r *models.CreatePaymentRequest) { r.CVV = "   " },
			wantField: "cvv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &fakePublisher{}
			repo := &countingRepo{PaymentRepository: repository.NewInMemoryPaymentRepository()}
			svc := NewPaymentService(repo, publisher, card.NewProtector("unit-test-pepper"), zap.NewNop())

			req := validRequest()
			tt.mutate(req)

			_, err := svc.CreatePayment(context.Background(), models.APIKeyPrincipal{MerchantID: "merchant-1"}, req)

			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", verr.Field, tt.wantField)
			}
			if repo.creates != 0 {
				t.Errorf("store written on validation failure")
			}
			if len(publisher.events()) != 0 {
				t.Errorf("event published on validation failure")
			}
		})
	}
}

func TestCreatePaymentPublishFailure(t *testing.T) {
	publishErr := &eventbus.PublishError{Topic: eventbus.TopicPaymentCreated, Err: errors.New("broker down")}

	var attempted models.PaymentCreatedEvent
	publisher := &fakePublisher{
		publishFn: func(_ string, event any) error {
			attempted = event.(models.PaymentCreatedEvent)
			return publishErr
		},
	}
	svc, _ := newTestService(publisher)

	_, err := svc.CreatePayment(context.Background(), models.APIKeyPrincipal{MerchantID: "merchant-1"}, validRequest())

	var perr *eventbus.PublishError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want PublishError", err)
	}

	// The store write is not rolled back: the record stays Pending even
	// though no event went out.
	stored, err := svc.GetPayment(context.Background(), attempted.PaymentID)
	if err != nil {
		t.Fatalf("stored record should survive the publish failure: %v", err)
	}
	if stored.Status != models.PaymentStatusPending {
		t.Errorf("status = %q, want %q", stored.Status, models.PaymentStatusPending)
	}
}

func TestCreatePaymentConcurrent(t *testing.T) {
	const n = 25

	svc, _ := newTestService(&fakePublisher{})
	principal := models.APIKeyPrincipal{MerchantID: "merchant-1", MerchantName: "Test Merchant 1"}

	var wg sync.WaitGroup
	ids := make(chan string, n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payment, err := svc.CreatePayment(context.Background(), principal, validRequest())
			if err != nil {
				errs <- err
				return
			}
			ids <- payment.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent create failed: %v", err)
	}

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate payment ID %q", id)
		}
		seen[id] = true

		if _, err := svc.GetPayment(context.Background(), id); err != nil {
			t.Errorf("payment %q not retrievable: %v", id, err)
		}
	}
	if len(seen) != n {
		t.Errorf("expected %d payments, got %d", n, len(seen))
	}
}
