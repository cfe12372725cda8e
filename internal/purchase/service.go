package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beatvault/beatvault-backend/internal/ledger"
	"github.com/beatvault/beatvault-backend/pkg/db/models"
	"github.com/beatvault/beatvault-backend/pkg/enums"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/logger"
	"github.com/beatvault/beatvault-backend/pkg/metrics"
)

type blobStore interface {
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	OriginalsBucket() string
}

type creditLedger interface {
	Spend(ctx context.Context, input ledger.SpendInput) (*ledger.SpendResult, error)
	Earn(ctx context.Context, input ledger.EarnInput) (*ledger.EarnResult, error)
}

// Service turns a buyer's download request into a debited wallet, an audit
// record and a short-lived download URL.
type Service interface {
	RequestDownload(ctx context.Context, userID, listingID uuid.UUID) (*DownloadGrant, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Purchase, error)
}

// DownloadGrant is the successful purchase response.
type DownloadGrant struct {
	DownloadURL      string `json:"download_url"`
	CreditsSpent     int    `json:"credits_spent"`
	RemainingBalance int    `json:"remaining_balance"`
}

type service struct {
	repo       Repository
	ledger     creditLedger
	blobs      blobStore
	metrics    *metrics.PipelineMetrics
	logg       *logger.Logger
	readURLTTL time.Duration
}

// NewService wires the purchase orchestrator.
func NewService(
	repo Repository,
	creditSvc creditLedger,
	blobs blobStore,
	met *metrics.PipelineMetrics,
	logg *logger.Logger,
	readURLTTL time.Duration,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if creditSvc == nil {
		return nil, fmt.Errorf("credit ledger required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if readURLTTL <= 0 {
		return nil, fmt.Errorf("read url ttl must be positive")
	}
	return &service{
		repo:       repo,
		ledger:     creditSvc,
		blobs:      blobs,
		metrics:    met,
		logg:       logg,
		readURLTTL: readURLTTL,
	}, nil
}

// RequestDownload runs the purchase saga: spend, audit, sign. Once the spend
// has committed, any later failure triggers a compensating refund keyed by the
// purchase id, so a replayed compensation cannot double-credit.
func (s *service) RequestDownload(ctx context.Context, userID, listingID uuid.UUID) (*DownloadGrant, error) {
	grant, err := s.requestDownload(ctx, userID, listingID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientCredits {
			s.metrics.IncPurchase("insufficient_credits")
		} else {
			s.metrics.IncPurchase("error")
		}
		return nil, err
	}
	s.metrics.IncPurchase("success")
	return grant, nil
}

func (s *service) requestDownload(ctx context.Context, userID, listingID uuid.UUID) (*DownloadGrant, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	listing, err := s.repo.GetPurchasableListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil || listing.Status != enums.UploadStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}

	credits := creditsForPrice(listing.Listing.PriceCents)
	purchaseID := uuid.New()

	spend, err := s.ledger.Spend(ctx, ledger.SpendInput{
		UserID:      userID,
		Amount:      credits,
		ExternalRef: "purchase:" + purchaseID.String(),
	})
	if err != nil {
		return nil, err
	}

	purchase := &models.Purchase{
		ID:           purchaseID,
		UserID:       userID,
		ListingID:    listingID,
		UploadID:     listing.Listing.UploadID,
		CreditsSpent: credits,
		PriceCents:   listing.Listing.PriceCents,
	}
	if err := s.repo.CreatePurchase(ctx, purchase); err != nil {
		s.compensate(ctx, userID, credits, purchaseID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record purchase")
	}

	downloadURL, err := s.blobs.SignedReadURL(s.blobs.OriginalsBucket(), listing.PathOriginal, s.readURLTTL)
	if err != nil {
		s.compensate(ctx, userID, credits, purchaseID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign download url")
	}

	return &DownloadGrant{
		DownloadURL:      downloadURL,
		CreditsSpent:     credits,
		RemainingBalance: spend.Remaining,
	}, nil
}

// compensate refunds a committed spend. A failed refund is logged for manual
// follow-up; the request still fails closed.
func (s *service) compensate(ctx context.Context, userID uuid.UUID, credits int, purchaseID uuid.UUID) {
	_, err := s.ledger.Earn(ctx, ledger.EarnInput{
		UserID:      userID,
		Amount:      credits,
		Kind:        enums.TransactionKindRefund,
		ExternalRef: "refund:" + purchaseID.String(),
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, fmt.Sprintf("purchase compensation failed for %s", purchaseID), err)
	}
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Purchase, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// creditsForPrice converts minor currency units to whole credits, rounding up.
func creditsForPrice(priceCents int) int {
	if priceCents <= 0 {
		return 0
	}
	return (priceCents + 99) / 100
}
