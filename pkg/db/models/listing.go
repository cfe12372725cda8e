package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing is the marketplace-facing price record for a finalized upload.
// Buyers only see listings whose upload is published.
type Listing struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UploadID   uuid.UUID `gorm:"column:upload_id;type:uuid;not null;uniqueIndex" json:"upload_id"`
	PriceCents int       `gorm:"column:price_cents;not null" json:"price_cents"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
