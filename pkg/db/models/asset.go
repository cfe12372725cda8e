package models

import (
	"time"

	"github.com/google/uuid"
)

// Asset holds the object paths and derived metadata for one upload.
// PathOriginal is written once at initiation; PathPreview and DurationSeconds
// stay null until finalize succeeds.
type Asset struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UploadID        uuid.UUID `gorm:"column:upload_id;type:uuid;not null;uniqueIndex" json:"upload_id"`
	PathOriginal    string    `gorm:"column:path_original;not null" json:"path_original"`
	PathPreview     *string   `gorm:"column:path_preview" json:"path_preview,omitempty"`
	DurationSeconds *int      `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
