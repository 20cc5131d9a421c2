// Package payments creates hosted checkout sessions and fulfills orders
// from the payment provider's signed completion events.
package payments

import (
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
)

// SessionClient creates checkout sessions. The concrete implementation
// talks to Stripe; tests substitute a fake.
type SessionClient interface {
	NewSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// stripeSessionClient is the live SessionClient. The API key is carried
// per client rather than through the package-level stripe.Key so that
// configuration stays explicit.
type stripeSessionClient struct {
	sessions session.Client
}

// NewSessionClient creates a SessionClient for the given secret key.
func NewSessionClient(apiKey string) (SessionClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("payments: Stripe secret key is required")
	}
	return &stripeSessionClient{
		sessions: session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: apiKey,
		},
	}, nil
}

func (c *stripeSessionClient) NewSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return c.sessions.New(params)
}
