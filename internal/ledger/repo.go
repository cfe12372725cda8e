package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beatvault/beatvault-backend/pkg/db/models"
)

// Repository manages persistence for wallets and credit transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	DebitWallet(ctx context.Context, userID uuid.UUID, amount int) (int64, error)
	CreditWallet(ctx context.Context, userID uuid.UUID, amount int) error
	CreateTransaction(ctx context.Context, txn *models.CreditTransaction) error
	TransactionByExternalRef(ctx context.Context, externalRef string) (*models.CreditTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// DebitWallet atomically subtracts amount when the balance covers it. The
// returned row count tells the caller whether the debit happened; zero rows
// means either no wallet or not enough credits.
func (r *repository) DebitWallet(ctx context.Context, userID uuid.UUID, amount int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]any{
			"balance":        gorm.Expr("balance - ?", amount),
			"lifetime_spent": gorm.Expr("lifetime_spent + ?", amount),
		})
	return result.RowsAffected, result.Error
}

// CreditWallet adds amount, creating the wallet row on first credit.
func (r *repository) CreditWallet(ctx context.Context, userID uuid.UUID, amount int) error {
	wallet := models.Wallet{
		UserID:         userID,
		Balance:        amount,
		LifetimeEarned: amount,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance":         gorm.Expr("balance + ?", amount),
				"lifetime_earned": gorm.Expr("lifetime_earned + ?", amount),
			}),
		}).
		Create(&wallet).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) TransactionByExternalRef(ctx context.Context, externalRef string) (*models.CreditTransaction, error) {
	var txn models.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("external_ref = ?", externalRef).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	var txns []models.CreditTransaction
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
