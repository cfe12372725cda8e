package purchase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatvault/beatvault-backend/pkg/db/models"
	"github.com/beatvault/beatvault-backend/pkg/enums"
)

// PurchasableListing is a listing joined with the state the orchestrator
// needs: the upload's publication status and the original object path.
type PurchasableListing struct {
	Listing      models.Listing
	UploadUserID uuid.UUID
	Status       enums.UploadStatus
	PathOriginal string
}

// Repository manages persistence for purchase audit records and the listing
// lookups that precede them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetPurchasableListing(ctx context.Context, listingID uuid.UUID) (*PurchasableListing, error)
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Purchase, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchase repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetPurchasableListing(ctx context.Context, listingID uuid.UUID) (*PurchasableListing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).Where("id = ?", listingID).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var upload models.Upload
	if err := r.db.WithContext(ctx).Where("id = ?", listing.UploadID).First(&upload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var asset models.Asset
	if err := r.db.WithContext(ctx).Where("upload_id = ?", listing.UploadID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &PurchasableListing{
		Listing:      listing,
		UploadUserID: upload.UserID,
		Status:       upload.Status,
		PathOriginal: asset.PathOriginal,
	}, nil
}

func (r *repository) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}
