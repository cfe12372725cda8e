package credits

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/beatvault/beatvault-backend/pkg/config"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/logger"
)

// Metadata keys the webhook reads back off the completed session.
const (
	MetadataUserID  = "user_id"
	MetadataCredits = "credits"
)

// Service starts credit top-up checkouts.
type Service interface {
	CreateTopUp(ctx context.Context, userID uuid.UUID, credits int) (*TopUpOutput, error)
}

// TopUpOutput carries the hosted checkout redirect.
type TopUpOutput struct {
	CheckoutURL string `json:"checkout_url"`
}

type service struct {
	checkout   StripeCheckoutClient
	cfg        config.CreditsConfig
	successURL string
	cancelURL  string
	logg       *logger.Logger
}

// NewService wires the top-up service against the Stripe checkout client.
func NewService(checkout StripeCheckoutClient, cfg config.CreditsConfig, successURL, cancelURL string, logg *logger.Logger) (Service, error) {
	if checkout == nil {
		return nil, fmt.Errorf("stripe checkout client required")
	}
	if cfg.PackageSize <= 0 {
		return nil, fmt.Errorf("credits package size must be positive")
	}
	if cfg.PackagePriceCents <= 0 {
		return nil, fmt.Errorf("credits package price must be positive")
	}
	if successURL == "" || cancelURL == "" {
		return nil, fmt.Errorf("checkout redirect urls required")
	}
	return &service{
		checkout:   checkout,
		cfg:        cfg,
		successURL: successURL,
		cancelURL:  cancelURL,
		logg:       logg,
	}, nil
}

// CreateTopUp opens a Stripe Checkout session for the fixed credit package.
// Only the configured package size is sellable.
func (s *service) CreateTopUp(ctx context.Context, userID uuid.UUID, credits int) (*TopUpOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if credits != s.cfg.PackageSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("credits must equal the package size of %d", s.cfg.PackageSize))
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(int64(s.cfg.PackagePriceCents)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%d BeatVault credits", credits)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata(MetadataUserID, userID.String())
	params.AddMetadata(MetadataCredits, strconv.Itoa(credits))

	checkoutSession, err := s.checkout.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	if checkoutSession == nil || checkoutSession.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout session missing redirect url")
	}

	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("checkout session %s opened for user %s", checkoutSession.ID, userID))
	}
	return &TopUpOutput{CheckoutURL: checkoutSession.URL}, nil
}
