package models

import (
	"time"

	"github.com/google/uuid"
)

// Purchase is the catalog-level audit record of one completed download grant.
// It is append-only and distinct from the ledger's CreditTransaction.
type Purchase struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	ListingID    uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	UploadID     uuid.UUID `gorm:"column:upload_id;type:uuid;not null" json:"upload_id"`
	CreditsSpent int       `gorm:"column:credits_spent;not null" json:"credits_spent"`
	PriceCents   int       `gorm:"column:price_cents;not null" json:"price_cents"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
