package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/beatvault/beatvault-backend/pkg/db"
	"github.com/beatvault/beatvault-backend/pkg/db/models"
	"github.com/beatvault/beatvault-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	wallets := `
CREATE TABLE IF NOT EXISTS wallets (
  user_id TEXT PRIMARY KEY,
  balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
  lifetime_earned INTEGER NOT NULL DEFAULT 0,
  lifetime_spent INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	creditTransactions := `
CREATE TABLE IF NOT EXISTS credit_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  amount INTEGER NOT NULL,
  external_ref TEXT NOT NULL UNIQUE,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(wallets).Error)
	require.NoError(t, db.Exec(creditTransactions).Error)
	return db
}

func seedWallet(t *testing.T, db *gorm.DB, balance int) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	require.NoError(t, db.Create(&models.Wallet{
		UserID:         userID,
		Balance:        balance,
		LifetimeEarned: balance,
	}).Error)
	return userID
}

func TestRepository_DebitWallet(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := seedWallet(t, db, 10)

	rows, err := repo.DebitWallet(ctx, userID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	wallet, err := repo.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 6, wallet.Balance)
	assert.Equal(t, 4, wallet.LifetimeSpent)

	rows, err = repo.DebitWallet(ctx, userID, 7)
	require.NoError(t, err)
	assert.Zero(t, rows, "debit past the balance must not match any row")

	wallet, err = repo.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 6, wallet.Balance)
}

func TestRepository_DebitWalletMissing(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	rows, err := repo.DebitWallet(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestRepository_CreditWalletUpsert(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.CreditWallet(ctx, userID, 10))
	wallet, err := repo.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 10, wallet.Balance)
	assert.Equal(t, 10, wallet.LifetimeEarned)

	require.NoError(t, repo.CreditWallet(ctx, userID, 5))
	wallet, err = repo.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 15, wallet.Balance)
	assert.Equal(t, 15, wallet.LifetimeEarned)
}

func TestRepository_GetWalletMissing(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	wallet, err := repo.GetWallet(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, wallet)
}

func TestRepository_ExternalRefUnique(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	first := &models.CreditTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        enums.TransactionKindTopUp,
		Amount:      10,
		ExternalRef: "pi_abc",
	}
	require.NoError(t, repo.CreateTransaction(ctx, first))

	replay := &models.CreditTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        enums.TransactionKindTopUp,
		Amount:      10,
		ExternalRef: "pi_abc",
	}
	err := repo.CreateTransaction(ctx, replay)
	require.Error(t, err)
	assert.True(t, dbpkg.IsUniqueViolation(err, ""))

	found, err := repo.TransactionByExternalRef(ctx, "pi_abc")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	missing, err := repo.TransactionByExternalRef(ctx, "pi_unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_ListTransactions(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()

	for i, ref := range []string{"pi_1", "pi_2", "pi_3"} {
		require.NoError(t, repo.CreateTransaction(ctx, &models.CreditTransaction{
			ID:          uuid.New(),
			UserID:      userID,
			Kind:        enums.TransactionKindTopUp,
			Amount:      10 + i,
			ExternalRef: ref,
		}))
	}
	require.NoError(t, repo.CreateTransaction(ctx, &models.CreditTransaction{
		ID:          uuid.New(),
		UserID:      other,
		Kind:        enums.TransactionKindTopUp,
		Amount:      10,
		ExternalRef: "pi_other",
	}))

	txns, err := repo.ListTransactions(ctx, userID, 2)
	require.NoError(t, err)
	assert.Len(t, txns, 2)
	for _, txn := range txns {
		assert.Equal(t, userID, txn.UserID)
	}
}
