package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/beatvault/beatvault-backend/pkg/db"
	"github.com/beatvault/beatvault-backend/pkg/db/models"
	"github.com/beatvault/beatvault-backend/pkg/enums"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service moves credits in and out of user wallets with exactly-once
// semantics keyed on each transaction's external reference.
type Service interface {
	Spend(ctx context.Context, input SpendInput) (*SpendResult, error)
	Earn(ctx context.Context, input EarnInput) (*EarnResult, error)
	Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error)
}

// SpendInput describes a debit against a wallet.
type SpendInput struct {
	UserID      uuid.UUID
	Amount      int
	ExternalRef string
}

// SpendResult reports the debit outcome.
type SpendResult struct {
	Transaction *models.CreditTransaction
	Remaining   int
}

// EarnInput describes a credit to a wallet. ExternalRef deduplicates: a
// second earn with the same reference is absorbed without moving credits.
type EarnInput struct {
	UserID      uuid.UUID
	Amount      int
	Kind        enums.TransactionKind
	ExternalRef string
}

// EarnResult reports the credit outcome.
type EarnResult struct {
	Transaction *models.CreditTransaction
	Duplicate   bool
}

type service struct {
	tx   txRunner
	repo Repository
}

// NewService wires a ledger service with the provided transaction runner and
// repository.
func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

// Spend debits the wallet and records the spend transaction in one database
// transaction. The debit is a conditional update, so a concurrent spend can
// never push the balance below zero.
func (s *service) Spend(ctx context.Context, input SpendInput) (*SpendResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(input.ExternalRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external ref is required")
	}

	var result SpendResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.DebitWallet(ctx, input.UserID, input.Amount)
		if err != nil {
			return err
		}
		if rows == 0 {
			wallet, err := repo.GetWallet(ctx, input.UserID)
			if err != nil {
				return err
			}
			// A buyer who never topped up has no wallet row yet; to a
			// spender that is indistinguishable from a zero balance.
			available := 0
			if wallet != nil {
				available = wallet.Balance
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientCredits, "not enough credits").
				WithDetails(map[string]any{
					"credits_needed":    input.Amount,
					"credits_available": available,
				})
		}

		txn := &models.CreditTransaction{
			UserID:      input.UserID,
			Kind:        enums.TransactionKindSpend,
			Amount:      -input.Amount,
			ExternalRef: input.ExternalRef,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		wallet, err := repo.GetWallet(ctx, input.UserID)
		if err != nil {
			return err
		}
		result = SpendResult{Transaction: txn, Remaining: wallet.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Earn credits the wallet. The transaction row goes in first: when the
// external ref already exists the unique index rejects the insert and the
// whole earn collapses to a no-op, which is what makes webhook retries and
// purchase compensations safe to replay.
func (s *service) Earn(ctx context.Context, input EarnInput) (*EarnResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Kind.IsValid() || !input.Kind.IsCredit() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid credit kind %q", input.Kind))
	}
	if strings.TrimSpace(input.ExternalRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external ref is required")
	}

	var result EarnResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.TransactionByExternalRef(ctx, input.ExternalRef)
		if err != nil {
			return err
		}
		if existing != nil {
			result = EarnResult{Duplicate: true}
			return nil
		}

		txn := &models.CreditTransaction{
			UserID:      input.UserID,
			Kind:        input.Kind,
			Amount:      input.Amount,
			ExternalRef: input.ExternalRef,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				result = EarnResult{Duplicate: true}
				return nil
			}
			return err
		}

		if err := repo.CreditWallet(ctx, input.UserID, input.Amount); err != nil {
			return err
		}
		result = EarnResult{Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Balance returns the wallet, or a zero-balance view when the user has never
// earned a credit.
func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	wallet, err := s.repo.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return &models.Wallet{UserID: userID}, nil
	}
	return wallet, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListTransactions(ctx, userID, limit)
}
