package credits

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/beatvault/beatvault-backend/pkg/config"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
)

type fakeCheckoutClient struct {
	createFn func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func (f *fakeCheckoutClient) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if f.createFn != nil {
		return f.createFn(ctx, params)
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func testCreditsConfig() config.CreditsConfig {
	return config.CreditsConfig{PackageSize: 10, PackagePriceCents: 1000}
}

func newTopUpService(t *testing.T, checkout *fakeCheckoutClient) Service {
	t.Helper()
	svc, err := NewService(checkout, testCreditsConfig(), "https://app.test/success", "https://app.test/cancel", nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_CreateTopUp(t *testing.T) {
	userID := uuid.New()

	var seen *stripe.CheckoutSessionParams
	checkout := &fakeCheckoutClient{
		createFn: func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			seen = params
			return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
		},
	}

	svc := newTopUpService(t, checkout)
	out, err := svc.CreateTopUp(context.Background(), userID, 10)
	if err != nil {
		t.Fatalf("CreateTopUp error: %v", err)
	}
	if out.CheckoutURL != "https://checkout.stripe.test/cs_test_1" {
		t.Fatalf("unexpected checkout url: %s", out.CheckoutURL)
	}

	if seen == nil {
		t.Fatal("expected session params")
	}
	if seen.Mode == nil || *seen.Mode != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("unexpected mode: %v", seen.Mode)
	}
	if len(seen.LineItems) != 1 {
		t.Fatalf("expected one line item, got %d", len(seen.LineItems))
	}
	item := seen.LineItems[0]
	if item.PriceData == nil || item.PriceData.UnitAmount == nil || *item.PriceData.UnitAmount != 1000 {
		t.Fatalf("unexpected unit amount: %+v", item.PriceData)
	}
	if item.Quantity == nil || *item.Quantity != 1 {
		t.Fatalf("unexpected quantity: %+v", item.Quantity)
	}
	if seen.Metadata[MetadataUserID] != userID.String() {
		t.Fatalf("user metadata missing: %v", seen.Metadata)
	}
	if seen.Metadata[MetadataCredits] != "10" {
		t.Fatalf("credits metadata missing: %v", seen.Metadata)
	}
	if seen.SuccessURL == nil || *seen.SuccessURL != "https://app.test/success" {
		t.Fatalf("unexpected success url: %v", seen.SuccessURL)
	}
}

func TestService_CreateTopUpRejectsOtherQuantities(t *testing.T) {
	checkout := &fakeCheckoutClient{
		createFn: func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			t.Fatal("invalid quantity must not reach stripe")
			return nil, nil
		},
	}
	svc := newTopUpService(t, checkout)

	for _, credits := range []int{0, 1, 5, 11, 100, -10} {
		_, err := svc.CreateTopUp(context.Background(), uuid.New(), credits)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("credits=%d: expected validation error, got %v", credits, err)
		}
	}
}

func TestService_CreateTopUpStripeFailure(t *testing.T) {
	checkout := &fakeCheckoutClient{
		createFn: func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return nil, errors.New("stripe down")
		},
	}
	svc := newTopUpService(t, checkout)

	_, err := svc.CreateTopUp(context.Background(), uuid.New(), 10)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_CreateTopUpMissingRedirect(t *testing.T) {
	checkout := &fakeCheckoutClient{
		createFn: func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return &stripe.CheckoutSession{ID: "cs_test_1"}, nil
		},
	}
	svc := newTopUpService(t, checkout)

	_, err := svc.CreateTopUp(context.Background(), uuid.New(), 10)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_CreateTopUpRequiresIdentity(t *testing.T) {
	svc := newTopUpService(t, &fakeCheckoutClient{})

	_, err := svc.CreateTopUp(context.Background(), uuid.Nil, 10)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
