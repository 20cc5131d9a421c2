package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"popart_backend/logging"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// Checkout input validation errors.
var (
	ErrMissingSize     = errors.New("payments: size is required")
	ErrInvalidPrice    = errors.New("payments: price must be a positive whole amount")
	ErrMissingEmail    = errors.New("payments: email is required")
	ErrMissingImageURL = errors.New("payments: imageUrl is required")
)

// productDescription appears on the hosted payment page.
const productDescription = "Custom digital painting portrait on premium canvas."

// ShippingInfo is the optional delivery block attached to a checkout.
type ShippingInfo struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
}

// CheckoutRequest describes one purchase attempt.
//
// Price is in major currency units (whole euros). The conversion to the
// provider's minor-unit integer representation happens exactly once, in
// MinorUnits; no currency amount is ever handled as a float.
type CheckoutRequest struct {
	// Size is the canvas size label, e.g. "60x40 cm".
	Size string

	// Price is the order total in major currency units.
	Price int64

	// Email is the customer's contact address.
	Email string

	// ImageURL is the stylized result the customer selected.
	ImageURL string

	// Origin is the storefront base URL used to build the success and
	// cancel redirect targets.
	Origin string

	// Shipping is optional delivery information.
	Shipping *ShippingInfo
}

// MinorUnits returns the amount in the provider's integer minor units.
func (r *CheckoutRequest) MinorUnits() int64 {
	return r.Price * 100
}

// Validate checks the required fields.
func (r *CheckoutRequest) Validate() error {
	if strings.TrimSpace(r.Size) == "" {
		return ErrMissingSize
	}
	if r.Price <= 0 {
		return ErrInvalidPrice
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	if strings.TrimSpace(r.ImageURL) == "" {
		return ErrMissingImageURL
	}
	return nil
}

// Metadata flattens the order-identifying fields onto the session so
// they survive to fulfillment. Nothing is persisted locally; the
// session's metadata is the durable record.
func (r *CheckoutRequest) Metadata() map[string]string {
	meta := map[string]string{
		"size":     r.Size,
		"imageUrl": r.ImageURL,
	}
	if s := r.Shipping; s != nil {
		if s.FullName != "" {
			meta["shippingName"] = s.FullName
		}
		if s.Address != "" {
			meta["shippingAddress"] = s.Address
		}
		if s.PostalCode != "" {
			meta["shippingPostalCode"] = s.PostalCode
		}
		if s.Phone != "" {
			meta["shippingPhone"] = s.Phone
		}
	}
	return meta
}

// CheckoutSession is the created session's caller-visible slice.
type CheckoutSession struct {
	SessionID   string
	RedirectURL string
	AmountTotal int64
}

// CheckoutCreator builds hosted payment sessions.
type CheckoutCreator struct {
	client SessionClient
	logger *logging.Logger
}

// NewCheckoutCreator creates a CheckoutCreator over the given client.
func NewCheckoutCreator(client SessionClient, logger *logging.Logger) (*CheckoutCreator, error) {
	if client == nil {
		return nil, fmt.Errorf("payments: session client cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CheckoutCreator{
		client: client,
		logger: logger.Named("checkout"),
	}, nil
}

// CreateSession creates one hosted checkout session and returns its
// redirect URL.
func (c *CheckoutCreator) CreateSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	origin := strings.TrimRight(req.Origin, "/")

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyEUR)),
					UnitAmount: stripe.Int64(req.MinorUnits()),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(fmt.Sprintf("PopArt Portrait - %s", req.Size)),
						Description: stripe.String(productDescription),
						Images:      []*string{stripe.String(req.ImageURL)},
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:    stripe.String(origin + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(origin + "/"),
		CustomerEmail: stripe.String(req.Email),
		Metadata:      req.Metadata(),
	}
	params.Context = ctx

	sess, err := c.client.NewSession(params)
	if err != nil {
		c.logger.Error("checkout session creation failed", zap.Error(err))
		return nil, fmt.Errorf("payments: failed to create checkout session: %w", err)
	}

	c.logger.Info("checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("size", req.Size),
		zap.Int64("amount", req.MinorUnits()))

	return &CheckoutSession{
		SessionID:   sess.ID,
		RedirectURL: sess.URL,
		AmountTotal: req.MinorUnits(),
	}, nil
}
