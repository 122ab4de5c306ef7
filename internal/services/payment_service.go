// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// PaymentOutcome is what the payment provider reports for one payout.
type PaymentOutcome struct {
	Reference string
	Settled   bool
	Failed    bool
	Status    string
}

// SettlementGateway looks up the outcome of a payout executed by the
// payment/ledger service. This subsystem never moves money itself.
type SettlementGateway interface {
	LookupPayment(ctx context.Context, reference string) (*PaymentOutcome, error)
}

type StripeSettlementGateway struct{}

func NewStripeSettlementGateway(secretKey string) *StripeSettlementGateway {
	// Initialize Stripe
	stripe.Key = secretKey
	return &StripeSettlementGateway{}
}

func (g *StripeSettlementGateway) LookupPayment(ctx context.Context, reference string) (*PaymentOutcome, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(reference, params)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get payment intent: %v", ErrDownstream, err)
	}

	outcome := &PaymentOutcome{
		Reference: pi.ID,
		Status:    string(pi.Status),
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		outcome.Settled = true
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		outcome.Failed = true
	}
	return outcome, nil
}
