package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/beatvault/beatvault-backend/pkg/enums"
)

// Upload tracks one creator upload from initiation through publication.
type Upload struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Title     string             `gorm:"column:title;not null" json:"title"`
	Status    enums.UploadStatus `gorm:"column:status;type:upload_status;not null;default:'uploading'" json:"status"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
