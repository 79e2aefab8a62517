// Package billing raises permit fee invoices with the payment provider.
// The assessment engine treats it as a best-effort collaborator: a
// billing outage leaves the payment reference empty, it never blocks a
// stage.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
)

// Service raises an invoice for an assessed permit fee and returns the
// provider's payment reference.
type Service interface {
	CreateInvoice(ctx context.Context, applicationID uint, amount float64) (string, error)
}

type stripeService struct {
	currency string
}

// NewService configures the Stripe-backed billing service. The secret
// key comes from STRIPE_SECRET_KEY.
func NewService(currency string) (Service, error) {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		return nil, errors.New("STRIPE_SECRET_KEY not configured")
	}
	stripe.Key = key

	if currency == "" {
		currency = "usd"
	}
	return &stripeService{currency: currency}, nil
}

func (s *stripeService) CreateInvoice(ctx context.Context, applicationID uint, amount float64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("invoice amount must be positive, got %v", amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(s.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
	}
	params.Context = ctx
	params.AddMetadata("application_id", fmt.Sprintf("%d", applicationID))

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe payment intent: %w", err)
	}
	return intent.ID, nil
}
