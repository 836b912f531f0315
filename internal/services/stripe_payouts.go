package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"booking-engine/internal/logger"
	"booking-engine/internal/models"
)

var (
	ErrStripeAPIError         = errors.New("stripe API error")
	ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")
)

// StripePayoutProvider moves money to creators' connected Stripe accounts.
// Batch and instant payouts both go out as transfers; the payout type rides
// along in metadata so provider webhooks can be correlated.
type StripePayoutProvider struct {
	client *client.API
	log    *logger.Logger
}

// NewStripePayoutProvider creates a provider backed by the Stripe API.
func NewStripePayoutProvider(log *logger.Logger) (*StripePayoutProvider, error) {
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY environment variable not set")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(stripeKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrStripeClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripePayoutProvider{
		client: sc,
		log:    log,
	}, nil
}

// CreatePayout transfers the amount to the creator's connected account and
// returns the Stripe transfer id.
func (s *StripePayoutProvider) CreatePayout(ctx context.Context, destination string, amount float64, payoutType models.PayoutType, metadata map[string]string) (string, error) {
	s.log.LogPayout("STRIPE", destination, fmt.Sprintf("Creating %s transfer of %.2f", payoutType, amount))

	// Stripe amounts are in the smallest currency unit.
	amountInCents := int64(math.Round(amount * 100))
	if amountInCents <= 0 {
		return "", fmt.Errorf("%w: transfer amount must be positive", ErrStripeAPIError)
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amountInCents),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Destination: stripe.String(destination),
	}
	params.Context = ctx
	params.AddMetadata("payout_type", string(payoutType))
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	transfer, err := s.client.Transfers.New(params)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Transfer to %s failed: %v", destination, err))
		return "", fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	s.log.LogPayout("STRIPE", destination, fmt.Sprintf("Transfer created: %s", transfer.ID))
	return transfer.ID, nil
}
