package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadEvent is a diagnostic record appended when the finalize pipeline fails
// fatally for an upload.
type UploadEvent struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UploadID  uuid.UUID `gorm:"column:upload_id;type:uuid;not null;index" json:"upload_id"`
	Message   string    `gorm:"column:message;not null" json:"message"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
