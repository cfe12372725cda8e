package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag annotates an upload with a derived key/value pair and a confidence in
// [0,1]. Multiple tags with the same name may accumulate over time; readers
// take the latest by created_at.
type Tag struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UploadID   uuid.UUID `gorm:"column:upload_id;type:uuid;not null;index" json:"upload_id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	Value      string    `gorm:"column:value;not null" json:"value"`
	Confidence float64   `gorm:"column:confidence;not null" json:"confidence"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
