package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatvault/beatvault-backend/pkg/db/models"
	"github.com/beatvault/beatvault-backend/pkg/enums"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepository struct {
	getWalletFn     func(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	debitFn         func(ctx context.Context, userID uuid.UUID, amount int) (int64, error)
	creditFn        func(ctx context.Context, userID uuid.UUID, amount int) error
	createTxnFn     func(ctx context.Context, txn *models.CreditTransaction) error
	byExternalRefFn func(ctx context.Context, externalRef string) (*models.CreditTransaction, error)
	listFn          func(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if f.getWalletFn != nil {
		return f.getWalletFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeRepository) DebitWallet(ctx context.Context, userID uuid.UUID, amount int) (int64, error) {
	if f.debitFn != nil {
		return f.debitFn(ctx, userID, amount)
	}
	return 0, nil
}

func (f *fakeRepository) CreditWallet(ctx context.Context, userID uuid.UUID, amount int) error {
	if f.creditFn != nil {
		return f.creditFn(ctx, userID, amount)
	}
	return nil
}

func (f *fakeRepository) CreateTransaction(ctx context.Context, txn *models.CreditTransaction) error {
	if f.createTxnFn != nil {
		return f.createTxnFn(ctx, txn)
	}
	return nil
}

func (f *fakeRepository) TransactionByExternalRef(ctx context.Context, externalRef string) (*models.CreditTransaction, error) {
	if f.byExternalRefFn != nil {
		return f.byExternalRefFn(ctx, externalRef)
	}
	return nil, nil
}

func (f *fakeRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, limit)
	}
	return nil, nil
}

func newTestService(t *testing.T, repo *fakeRepository) Service {
	t.Helper()
	svc, err := NewService(fakeTxRunner{}, repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_Spend(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepository{}

	var debited int
	repo.debitFn = func(ctx context.Context, id uuid.UUID, amount int) (int64, error) {
		if id != userID {
			t.Fatalf("unexpected user id: %s", id)
		}
		debited = amount
		return 1, nil
	}
	var created *models.CreditTransaction
	repo.createTxnFn = func(ctx context.Context, txn *models.CreditTransaction) error {
		created = txn
		return nil
	}
	repo.getWalletFn = func(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
		return &models.Wallet{UserID: id, Balance: 7}, nil
	}

	svc := newTestService(t, repo)
	result, err := svc.Spend(context.Background(), SpendInput{
		UserID:      userID,
		Amount:      3,
		ExternalRef: "purchase:" + uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("Spend error: %v", err)
	}
	if debited != 3 {
		t.Fatalf("expected debit of 3, got %d", debited)
	}
	if created == nil || created.Amount != -3 || created.Kind != enums.TransactionKindSpend {
		t.Fatalf("unexpected spend transaction: %+v", created)
	}
	if result.Remaining != 7 {
		t.Fatalf("expected remaining 7, got %d", result.Remaining)
	}
}

func TestService_SpendInsufficientCredits(t *testing.T) {
	repo := &fakeRepository{}
	repo.debitFn = func(ctx context.Context, id uuid.UUID, amount int) (int64, error) {
		return 0, nil
	}
	repo.getWalletFn = func(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
		return &models.Wallet{UserID: id, Balance: 2}, nil
	}

	svc := newTestService(t, repo)
	_, err := svc.Spend(context.Background(), SpendInput{
		UserID:      uuid.New(),
		Amount:      5,
		ExternalRef: "purchase:" + uuid.NewString(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientCredits {
		t.Fatalf("expected insufficient credits error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["credits_needed"] != 5 || details["credits_available"] != 2 {
		t.Fatalf("unexpected details: %v", details)
	}
}

func TestService_SpendWalletMissing(t *testing.T) {
	repo := &fakeRepository{}

	svc := newTestService(t, repo)
	_, err := svc.Spend(context.Background(), SpendInput{
		UserID:      uuid.New(),
		Amount:      1,
		ExternalRef: "purchase:" + uuid.NewString(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientCredits {
		t.Fatalf("expected insufficient credits error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["credits_available"] != 0 {
		t.Fatalf("a buyer without a wallet has zero credits, got %v", details["credits_available"])
	}
}

func TestService_SpendValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	tests := []struct {
		name  string
		input SpendInput
	}{
		{"missing user", SpendInput{Amount: 1, ExternalRef: "ref"}},
		{"zero amount", SpendInput{UserID: uuid.New(), ExternalRef: "ref"}},
		{"negative amount", SpendInput{UserID: uuid.New(), Amount: -4, ExternalRef: "ref"}},
		{"missing ref", SpendInput{UserID: uuid.New(), Amount: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Spend(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_Earn(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepository{}

	var created *models.CreditTransaction
	repo.createTxnFn = func(ctx context.Context, txn *models.CreditTransaction) error {
		created = txn
		return nil
	}
	var credited int
	repo.creditFn = func(ctx context.Context, id uuid.UUID, amount int) error {
		credited = amount
		return nil
	}

	svc := newTestService(t, repo)
	result, err := svc.Earn(context.Background(), EarnInput{
		UserID:      userID,
		Amount:      10,
		Kind:        enums.TransactionKindTopUp,
		ExternalRef: "pi_123",
	})
	if err != nil {
		t.Fatalf("Earn error: %v", err)
	}
	if result.Duplicate {
		t.Fatal("first earn must not be a duplicate")
	}
	if created == nil || created.Amount != 10 || created.ExternalRef != "pi_123" {
		t.Fatalf("unexpected earn transaction: %+v", created)
	}
	if credited != 10 {
		t.Fatalf("expected wallet credit of 10, got %d", credited)
	}
}

func TestService_EarnDuplicateExternalRef(t *testing.T) {
	repo := &fakeRepository{}
	repo.byExternalRefFn = func(ctx context.Context, ref string) (*models.CreditTransaction, error) {
		return &models.CreditTransaction{ExternalRef: ref}, nil
	}
	repo.creditFn = func(ctx context.Context, id uuid.UUID, amount int) error {
		t.Fatal("duplicate earn must not credit the wallet")
		return nil
	}

	svc := newTestService(t, repo)
	result, err := svc.Earn(context.Background(), EarnInput{
		UserID:      uuid.New(),
		Amount:      10,
		Kind:        enums.TransactionKindTopUp,
		ExternalRef: "pi_123",
	})
	if err != nil {
		t.Fatalf("Earn error: %v", err)
	}
	if !result.Duplicate {
		t.Fatal("expected duplicate result")
	}
}

func TestService_EarnInsertRace(t *testing.T) {
	repo := &fakeRepository{}
	repo.createTxnFn = func(ctx context.Context, txn *models.CreditTransaction) error {
		return errors.New(`ERROR: duplicate key value violates unique constraint "idx_credit_transactions_external_ref"`)
	}
	repo.creditFn = func(ctx context.Context, id uuid.UUID, amount int) error {
		t.Fatal("lost insert race must not credit the wallet")
		return nil
	}

	svc := newTestService(t, repo)
	result, err := svc.Earn(context.Background(), EarnInput{
		UserID:      uuid.New(),
		Amount:      10,
		Kind:        enums.TransactionKindRefund,
		ExternalRef: "refund:" + uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("Earn error: %v", err)
	}
	if !result.Duplicate {
		t.Fatal("expected duplicate result on insert race")
	}
}

func TestService_EarnValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	tests := []struct {
		name  string
		input EarnInput
	}{
		{"missing user", EarnInput{Amount: 1, Kind: enums.TransactionKindTopUp, ExternalRef: "ref"}},
		{"zero amount", EarnInput{UserID: uuid.New(), Kind: enums.TransactionKindTopUp, ExternalRef: "ref"}},
		{"spend kind", EarnInput{UserID: uuid.New(), Amount: 1, Kind: enums.TransactionKindSpend, ExternalRef: "ref"}},
		{"unknown kind", EarnInput{UserID: uuid.New(), Amount: 1, Kind: enums.TransactionKind("bogus"), ExternalRef: "ref"}},
		{"missing ref", EarnInput{UserID: uuid.New(), Amount: 1, Kind: enums.TransactionKindTopUp}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Earn(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_BalanceMissingWallet(t *testing.T) {
	userID := uuid.New()
	svc := newTestService(t, &fakeRepository{})

	wallet, err := svc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if wallet.UserID != userID || wallet.Balance != 0 {
		t.Fatalf("expected zero balance view, got %+v", wallet)
	}
}

func TestService_RepoErrorBubblesUp(t *testing.T) {
	repo := &fakeRepository{}
	expectedErr := errors.New("boom")
	repo.debitFn = func(ctx context.Context, id uuid.UUID, amount int) (int64, error) {
		return 0, expectedErr
	}

	svc := newTestService(t, repo)
	if _, err := svc.Spend(context.Background(), SpendInput{
		UserID:      uuid.New(),
		Amount:      1,
		ExternalRef: "ref",
	}); !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}
