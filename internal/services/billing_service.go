// internal/services/billing_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/firstscanit/fsi-backend/internal/config"
)

// BillingService charges a per-unit issuance fee through Stripe. Billing is
// disabled unless both a Stripe key and a non-zero fee are configured.
type BillingService struct {
	config *config.Config
}

type IssuanceCharge struct {
	PaymentIntentID string  `json:"payment_intent_id"`
	ClientSecret    string  `json:"client_secret"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

func NewBillingService(config *config.Config) *BillingService {
	if config.Billing.StripeSecretKey != "" {
		stripe.Key = config.Billing.StripeSecretKey
	}

	return &BillingService{config: config}
}

func (s *BillingService) Enabled() bool {
	return s.config.Billing.StripeSecretKey != "" && s.config.Billing.PerUnitFee > 0
}

// ChargeIssuance creates a PaymentIntent for one issued batch. Returns nil
// when billing is disabled.
func (s *BillingService) ChargeIssuance(brandID uuid.UUID, batchID string, quantity int) (*IssuanceCharge, error) {
	if !s.Enabled() {
		return nil, nil
	}

	amount := s.config.Billing.PerUnitFee * float64(quantity)
	amountInCents := int64(amount * 100)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String("usd"),
	}
	params.AddMetadata("brand_id", brandID.String())
	params.AddMetadata("batch_id", batchID)
	params.AddMetadata("quantity", fmt.Sprintf("%d", quantity))

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create issuance charge: %w", err)
	}

	return &IssuanceCharge{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          amount,
		Currency:        "usd",
	}, nil
}
