package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload produces a Stripe-Signature header for the payload the way
// the provider does: an HMAC-SHA256 over "<timestamp>.<payload>".
func signPayload(secret string, payload []byte, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func completedEventPayload() []byte {
	return []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"api_version": "2024-06-20",
		"data": {
			"object": {
				"id": "cs_test_123",
				"object": "checkout.session",
				"amount_total": 5500,
				"customer_details": {"email": "customer@example.com"},
				"metadata": {
					"size": "60x40 cm",
					"imageUrl": "https://cdn.example.com/result-1.png",
					"shippingName": "Mari Maasikas"
				}
			}
		}
	}`)
}

// fakeNotifier records notification attempts.
type fakeNotifier struct {
	customerOrders []*CompletedOrder
	adminOrders    []*CompletedOrder
	customerErr    error
	adminErr       error
}

func (f *fakeNotifier) SendCustomerConfirmation(_ context.Context, order *CompletedOrder) error {
	f.customerOrders = append(f.customerOrders, order)
	return f.customerErr
}

func (f *fakeNotifier) SendAdminNotification(_ context.Context, order *CompletedOrder) error {
	f.adminOrders = append(f.adminOrders, order)
	return f.adminErr
}

func newTestHandler(t *testing.T, notifier *fakeNotifier) *FulfillmentHandler {
	t.Helper()
	handler, err := NewFulfillmentHandler(testWebhookSecret, notifier, nil)
	if err != nil {
		t.Fatalf("NewFulfillmentHandler failed: %v", err)
	}
	return handler
}

func TestHandleEventCompletedCheckout(t *testing.T) {
	notifier := &fakeNotifier{}
	handler := newTestHandler(t, notifier)

	payload := completedEventPayload()
	sig := signPayload(testWebhookSecret, payload, time.Now())

	if err := handler.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	if len(notifier.customerOrders) != 1 {
		t.Fatalf("expected 1 customer email, got %d", len(notifier.customerOrders))
	}
	if len(notifier.adminOrders) != 1 {
		t.Fatalf("expected 1 admin email, got %d", len(notifier.adminOrders))
	}

	order := notifier.customerOrders[0]
	if order.SessionID != "cs_test_123" {
		t.Errorf("SessionID = %q", order.SessionID)
	}
	if order.Size != "60x40 cm" {
		t.Errorf("Size = %q", order.Size)
	}
	if order.ImageURL != "https://cdn.example.com/result-1.png" {
		t.Errorf("ImageURL = %q", order.ImageURL)
	}
	if order.CustomerEmail != "customer@example.com" {
		t.Errorf("CustomerEmail = %q", order.CustomerEmail)
	}
	if order.AmountTotal != 5500 {
		t.Errorf("AmountTotal = %d", order.AmountTotal)
	}
	if order.Shipping.FullName != "Mari Maasikas" {
		t.Errorf("Shipping.FullName = %q", order.Shipping.FullName)
	}
}

func TestHandleEventBadSignature(t *testing.T) {
	notifier := &fakeNotifier{}
	handler := newTestHandler(t, notifier)

	payload := completedEventPayload()

	tests := []struct {
		name string
		sig  string
	}{
		{"wrong secret", signPayload("whsec_other", payload, time.Now())},
		{"stale timestamp", signPayload(testWebhookSecret, payload, time.Now().Add(-time.Hour))},
		{"garbage header", "t=abc,v1=zzz"},
		{"empty header", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handler.HandleEvent(context.Background(), payload, tt.sig)
			if !errors.Is(err, ErrBadSignature) {
				t.Errorf("error = %v, want ErrBadSignature", err)
			}
		})
	}

	// An unverified body must trigger zero side effects.
	if len(notifier.customerOrders) != 0 || len(notifier.adminOrders) != 0 {
		t.Errorf("unverified deliveries sent emails: customer=%d admin=%d",
			len(notifier.customerOrders), len(notifier.adminOrders))
	}
}

func TestHandleEventTamperedPayload(t *testing.T) {
	notifier := &fakeNotifier{}
	handler := newTestHandler(t, notifier)

	payload := completedEventPayload()
	sig := signPayload(testWebhookSecret, payload, time.Now())

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = ' '

	if err := handler.HandleEvent(context.Background(), tampered, sig); !errors.Is(err, ErrBadSignature) {
		t.Errorf("error = %v, want ErrBadSignature", err)
	}
	if len(notifier.customerOrders) != 0 {
		t.Error("tampered delivery sent a customer email")
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	notifier := &fakeNotifier{}
	handler := newTestHandler(t, notifier)

	payload := []byte(`{"id":"evt_2","type":"payment_intent.created","api_version":"2024-06-20","data":{"object":{}}}`)
	sig := signPayload(testWebhookSecret, payload, time.Now())

	if err := handler.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if len(notifier.customerOrders) != 0 || len(notifier.adminOrders) != 0 {
		t.Error("irrelevant event triggered notifications")
	}
}

func TestHandleEventCustomerFailureDoesNotBlockAdmin(t *testing.T) {
	notifier := &fakeNotifier{customerErr: errors.New("mailbox full")}
	handler := newTestHandler(t, notifier)

	payload := completedEventPayload()
	sig := signPayload(testWebhookSecret, payload, time.Now())

	// Customer email failure is logged, not surfaced: the provider must
	// not redeliver for it.
	if err := handler.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if len(notifier.adminOrders) != 1 {
		t.Errorf("admin email suppressed: got %d sends", len(notifier.adminOrders))
	}
}

func TestHandleEventAdminFailureRequestsRetry(t *testing.T) {
	notifier := &fakeNotifier{adminErr: errors.New("smtp down")}
	handler := newTestHandler(t, notifier)

	payload := completedEventPayload()
	sig := signPayload(testWebhookSecret, payload, time.Now())

	err := handler.HandleEvent(context.Background(), payload, sig)
	if err == nil {
		t.Fatal("expected error so the provider retries the event")
	}
	if errors.Is(err, ErrBadSignature) {
		t.Error("admin failure must not be reported as a signature error")
	}
	if len(notifier.customerOrders) != 1 {
		t.Errorf("customer email suppressed: got %d sends", len(notifier.customerOrders))
	}
}

func TestNewFulfillmentHandlerValidation(t *testing.T) {
	if _, err := NewFulfillmentHandler("", &fakeNotifier{}, nil); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := NewFulfillmentHandler(testWebhookSecret, nil, nil); err == nil {
		t.Error("expected error for nil notifier")
	}
}
