package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's spendable credit balance plus lifetime counters.
// Balance never goes negative; the schema enforces it with a CHECK constraint
// and the ledger only mutates it through conditional updates.
type Wallet struct {
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Balance        int       `gorm:"column:balance;not null;default:0" json:"balance"`
	LifetimeEarned int       `gorm:"column:lifetime_earned;not null;default:0" json:"lifetime_earned"`
	LifetimeSpent  int       `gorm:"column:lifetime_spent;not null;default:0" json:"lifetime_spent"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
