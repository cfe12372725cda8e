package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatvault/beatvault-backend/pkg/enums"
	"github.com/beatvault/beatvault-backend/pkg/pagination"
)

// listingRow is the flattened browse projection scanned straight from the
// join query.
type listingRow struct {
	ListingID       uuid.UUID `gorm:"column:listing_id"`
	UploadID        uuid.UUID `gorm:"column:upload_id"`
	Title           string    `gorm:"column:title"`
	PriceCents      int       `gorm:"column:price_cents"`
	PathPreview     *string   `gorm:"column:path_preview"`
	DurationSeconds *int      `gorm:"column:duration_seconds"`
	BPM             *int      `gorm:"column:bpm"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

// ListParams filters and paginates the published-listing query.
type ListParams struct {
	BPMMin *int
	BPMMax *int
	Cursor *pagination.Cursor
	Limit  int
}

// Repository reads the browse projection of published listings.
type Repository interface {
	ListPublished(ctx context.Context, params ListParams) ([]listingRow, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// latestBPMSubquery resolves a listing's BPM as the newest bpm tag on its
// upload, which is the deterministic tie-break for historical re-tags.
const latestBPMSubquery = `(
SELECT CAST(t.value AS INTEGER)
FROM tags t
WHERE t.upload_id = listings.upload_id AND t.name = 'bpm'
ORDER BY t.created_at DESC
LIMIT 1)`

func (r *repository) ListPublished(ctx context.Context, params ListParams) ([]listingRow, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Table("listings").
		Select(`listings.id AS listing_id,
listings.upload_id AS upload_id,
uploads.title AS title,
listings.price_cents AS price_cents,
assets.path_preview AS path_preview,
assets.duration_seconds AS duration_seconds,
`+latestBPMSubquery+` AS bpm,
listings.created_at AS created_at`).
		Joins("JOIN uploads ON uploads.id = listings.upload_id").
		Joins("JOIN assets ON assets.upload_id = listings.upload_id").
		Where("uploads.status = ?", enums.UploadStatusPublished)

	if params.BPMMin != nil && params.BPMMax != nil {
		query = query.Where(latestBPMSubquery+" BETWEEN ? AND ?", *params.BPMMin, *params.BPMMax)
	}
	if params.Cursor != nil {
		query = query.Where("(listings.created_at, listings.id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []listingRow
	if err := query.
		Order("listings.created_at DESC, listings.id DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		rows = rows[:normalized]
		// The cursor is the last row served; the strict < in the next query
		// resumes right after it.
		last := rows[normalized-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ListingID}, nil
	}
	return rows, nil, nil
}
