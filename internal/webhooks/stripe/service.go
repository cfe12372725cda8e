package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/beatvault/beatvault-backend/internal/credits"
	"github.com/beatvault/beatvault-backend/internal/ledger"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/enums"
	"github.com/beatvault/beatvault-backend/pkg/logger"
	"github.com/beatvault/beatvault-backend/pkg/metrics"
)

// Cents per credit on completed checkouts.
const centsPerCredit = 100

type creditLedger interface {
	Earn(ctx context.Context, input ledger.EarnInput) (*ledger.EarnResult, error)
}

type ServiceParams struct {
	Ledger  creditLedger
	Metrics *metrics.PipelineMetrics
	Logger  *logger.Logger
}

// Service grants wallet credits off completed Stripe checkouts.
type Service struct {
	ledger  creditLedger
	metrics *metrics.PipelineMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credit ledger required")
	}
	return &Service{
		ledger:  params.Ledger,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.grantCredits(ctx, &session)
	default:
		return nil
	}
}

func (s *Service) grantCredits(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session is required")
	}

	userID, err := userIDFromMetadata(session.Metadata)
	if err != nil {
		return err
	}

	granted := creditsForAmount(session.AmountTotal)
	if granted <= 0 {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("checkout session %s completed with no billable amount", session.ID))
		}
		return nil
	}

	ref := externalRef(session)
	result, err := s.ledger.Earn(ctx, ledger.EarnInput{
		UserID:      userID,
		Amount:      granted,
		Kind:        enums.TransactionKindTopUp,
		ExternalRef: ref,
	})
	if err != nil {
		return err
	}

	if result.Duplicate {
		if s.logg != nil {
			s.logg.Info(ctx, fmt.Sprintf("top-up %s already applied", ref))
		}
		return nil
	}

	if s.metrics != nil {
		s.metrics.AddCreditsGranted(int64(granted))
	}
	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("granted %d credits to %s", granted, userID))
	}
	return nil
}

// creditsForAmount converts a Stripe minor-unit total into whole credits.
func creditsForAmount(amountTotal int64) int {
	if amountTotal <= 0 {
		return 0
	}
	credits := decimal.NewFromInt(amountTotal).
		Div(decimal.NewFromInt(centsPerCredit)).
		Floor()
	return int(credits.IntPart())
}

// externalRef keys the earn on the payment intent so session replays with the
// same payment collapse into one ledger row.
func externalRef(session *stripe.CheckoutSession) string {
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		return "topup:" + session.PaymentIntent.ID
	}
	return "topup:" + session.ID
}

func userIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	raw, ok := metadata[credits.MetadataUserID]
	if !ok || raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session missing user metadata")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse user metadata")
	}
	return userID, nil
}
