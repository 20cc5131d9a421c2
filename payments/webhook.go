package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"popart_backend/logging"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

// ErrBadSignature is returned when the webhook payload's signature does
// not verify. Callers must answer with a client error and perform no
// side effects.
var ErrBadSignature = errors.New("payments: webhook signature verification failed")

// eventCheckoutCompleted is the only event type that triggers
// fulfillment.
const eventCheckoutCompleted = "checkout.session.completed"

// CompletedOrder is the fulfillment view of a paid checkout session,
// reconstructed entirely from session metadata and customer details.
type CompletedOrder struct {
	SessionID     string
	Size          string
	ImageURL      string
	CustomerEmail string

	// AmountTotal is in minor currency units, as reported by the
	// provider.
	AmountTotal int64

	Shipping ShippingInfo
}

// OrderNotifier sends the two fulfillment notifications. The sends are
// independent: one failing must not suppress the other.
type OrderNotifier interface {
	// SendCustomerConfirmation emails the customer their order summary.
	SendCustomerConfirmation(ctx context.Context, order *CompletedOrder) error

	// SendAdminNotification emails the shop about the new order.
	SendAdminNotification(ctx context.Context, order *CompletedOrder) error
}

// FulfillmentHandler verifies payment completion events and triggers the
// order notifications.
type FulfillmentHandler struct {
	secret   string
	notifier OrderNotifier
	logger   *logging.Logger
}

// NewFulfillmentHandler creates a handler for the given webhook signing
// secret.
func NewFulfillmentHandler(secret string, notifier OrderNotifier, logger *logging.Logger) (*FulfillmentHandler, error) {
	if secret == "" {
		return nil, fmt.Errorf("payments: webhook secret is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("payments: notifier cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FulfillmentHandler{
		secret:   secret,
		notifier: notifier,
		logger:   logger.Named("fulfillment"),
	}, nil
}

// HandleEvent verifies and processes one webhook delivery.
//
// Unverified payloads return ErrBadSignature before any side effect.
// Event types other than checkout completion are acknowledged and
// ignored. On a completed checkout both notifications are attempted; a
// failed customer email is logged only, while a failed admin email is
// returned as an error so the caller answers with a server error and the
// provider redelivers the event.
func (h *FulfillmentHandler) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	// The account's pinned API version may differ from the SDK's.
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.logger.Warn("rejecting webhook delivery", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	if string(event.Type) != eventCheckoutCompleted {
		h.logger.Debug("ignoring event", zap.String("type", string(event.Type)))
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("payments: malformed checkout session in event: %w", err)
	}

	order := orderFromSession(&sess)
	log := h.logger.With(
		zap.String("session_id", order.SessionID),
		zap.String("size", order.Size))

	log.Info("checkout completed, sending notifications")

	if err := h.notifier.SendCustomerConfirmation(ctx, order); err != nil {
		// The admin notification still carries the order; do not retry
		// the whole event for this.
		log.Error("customer confirmation failed", zap.Error(err))
	}

	if err := h.notifier.SendAdminNotification(ctx, order); err != nil {
		log.Error("admin notification failed", zap.Error(err))
		return fmt.Errorf("payments: admin notification failed: %w", err)
	}

	return nil
}

// orderFromSession rebuilds the order from session metadata.
func orderFromSession(sess *stripe.CheckoutSession) *CompletedOrder {
	order := &CompletedOrder{
		SessionID:   sess.ID,
		AmountTotal: sess.AmountTotal,
	}
	if sess.Metadata != nil {
		order.Size = sess.Metadata["size"]
		order.ImageURL = sess.Metadata["imageUrl"]
		order.Shipping = ShippingInfo{
			FullName:   sess.Metadata["shippingName"],
			Address:    sess.Metadata["shippingAddress"],
			PostalCode: sess.Metadata["shippingPostalCode"],
			Phone:      sess.Metadata["shippingPhone"],
		}
	}
	if sess.CustomerDetails != nil {
		order.CustomerEmail = sess.CustomerDetails.Email
	}
	if order.CustomerEmail == "" {
		order.CustomerEmail = sess.CustomerEmail
	}
	return order
}
