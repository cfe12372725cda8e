package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/beatvault/beatvault-backend/pkg/enums"
)

// CreditTransaction records one immutable credit movement. ExternalRef is the
// idempotency key: the payment id for top-ups, a fresh uuid for spends, and a
// refund:<purchase id> marker for compensations. The unique index rejects
// replays of the same external event.
type CreditTransaction struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Kind        enums.TransactionKind `gorm:"column:kind;type:transaction_kind;not null" json:"kind"`
	Amount      int                   `gorm:"column:amount;not null" json:"amount"`
	ExternalRef string                `gorm:"column:external_ref;not null;uniqueIndex" json:"external_ref"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
