package uploads

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatvault/beatvault-backend/pkg/db/models"
	"github.com/beatvault/beatvault-backend/pkg/enums"
)

// Repository manages persistence for uploads and their derived records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateUpload(ctx context.Context, upload *models.Upload) error
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetUpload(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	GetUploadForUser(ctx context.Context, id, userID uuid.UUID) (*models.Upload, error)
	GetAssetByUploadID(ctx context.Context, uploadID uuid.UUID) (*models.Asset, error)
	SetAssetDerived(ctx context.Context, assetID uuid.UUID, previewPath string, durationSeconds int) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.UploadStatus) (int64, error)
	UpdateStatusOwned(ctx context.Context, id, userID uuid.UUID, status enums.UploadStatus) (int64, error)
	CreateTag(ctx context.Context, tag *models.Tag) error
	LatestTag(ctx context.Context, uploadID uuid.UUID, name string) (*models.Tag, error)
	CreateListing(ctx context.Context, listing *models.Listing) error
	CreateUploadEvent(ctx context.Context, event *models.UploadEvent) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an uploads repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateUpload(ctx context.Context, upload *models.Upload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}

func (r *repository) CreateAsset(ctx context.Context, asset *models.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *repository) GetUpload(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&upload).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &upload, nil
}

func (r *repository) GetUploadForUser(ctx context.Context, id, userID uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&upload).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &upload, nil
}

func (r *repository) GetAssetByUploadID(ctx context.Context, uploadID uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (r *repository) SetAssetDerived(ctx context.Context, assetID uuid.UUID, previewPath string, durationSeconds int) error {
	return r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ?", assetID).
		Updates(map[string]any{
			"path_preview":     previewPath,
			"duration_seconds": durationSeconds,
		}).Error
}

// TransitionStatus advances the upload only when it still sits in the
// expected state, which is what serializes concurrent finalize calls.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.UploadStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Upload{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

// UpdateStatusOwned applies the owner publish/pending toggle. The WHERE clause
// keeps not-yet-finalized uploads out of reach even when a finalize races the
// toggle; anything past uploading is fair game for the owner.
func (r *repository) UpdateStatusOwned(ctx context.Context, id, userID uuid.UUID, status enums.UploadStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Upload{}).
		Where("id = ? AND user_id = ? AND status <> ?", id, userID, enums.UploadStatusUploading).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *repository) CreateTag(ctx context.Context, tag *models.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *repository) LatestTag(ctx context.Context, uploadID uuid.UUID, name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).
		Where("upload_id = ? AND name = ?", uploadID, name).
		Order("created_at DESC").
		First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

func (r *repository) CreateListing(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) CreateUploadEvent(ctx context.Context, event *models.UploadEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
