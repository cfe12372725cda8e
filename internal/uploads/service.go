package uploads

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatvault/beatvault-backend/internal/analysis"
	"github.com/beatvault/beatvault-backend/pkg/db/models"
	"github.com/beatvault/beatvault-backend/pkg/enums"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/logger"
	"github.com/beatvault/beatvault-backend/pkg/metrics"
)

const (
	previewObjectName  = "preview.mp3"
	previewContentType = "audio/mpeg"
	bpmTagName         = "bpm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type blobStore interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	Upload(ctx context.Context, bucket, object, contentType string, data []byte) error
	MakePublic(ctx context.Context, bucket, object string) error
	ObjectExists(ctx context.Context, bucket, object string) (bool, error)
	DeleteObject(ctx context.Context, bucket, object string) error
	OriginalsBucket() string
	PreviewsBucket() string
}

type analyzer interface {
	Analyze(ctx context.Context, sourceURL string) (*analysis.Result, error)
}

// Service owns the upload lifecycle from initiation through publication.
type Service interface {
	Initiate(ctx context.Context, userID uuid.UUID, input InitiateInput) (*InitiateOutput, error)
	Finalize(ctx context.Context, uploadID, userID uuid.UUID) (*FinalizeOutput, error)
	SetStatus(ctx context.Context, uploadID, userID uuid.UUID, status enums.UploadStatus) (*models.Upload, error)
	Get(ctx context.Context, uploadID, userID uuid.UUID) (*Detail, error)
}

// Config carries the tunables the upload pipeline needs.
type Config struct {
	UploadURLTTL    time.Duration
	ReadURLTTL      time.Duration
	TrackPriceCents int
}

// InitiateInput models an upload initiation request.
type InitiateInput struct {
	Title    string
	Filename string
}

// InitiateOutput hands the client everything needed to push the original.
type InitiateOutput struct {
	UploadID     uuid.UUID `json:"upload_id"`
	WriteURL     string    `json:"url"`
	OriginalPath string    `json:"path"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// FinalizeOutput summarizes the derived asset state after finalization.
type FinalizeOutput struct {
	UploadID        uuid.UUID `json:"upload_id"`
	PreviewPath     string    `json:"path_preview"`
	BPM             int       `json:"bpm"`
	DurationSeconds int       `json:"duration_seconds"`
}

// Detail is the owner dashboard view of one upload.
type Detail struct {
	Upload *models.Upload `json:"upload"`
	Asset  *models.Asset  `json:"asset"`
	BPM    *int           `json:"bpm,omitempty"`
}

type service struct {
	tx      txRunner
	repo    Repository
	blobs   blobStore
	engine  analyzer
	metrics *metrics.PipelineMetrics
	logg    *logger.Logger
	cfg     Config
}

// NewService wires the upload state machine with its storage, analysis and
// persistence collaborators.
func NewService(
	tx txRunner,
	repo Repository,
	blobs blobStore,
	engine analyzer,
	met *metrics.PipelineMetrics,
	logg *logger.Logger,
	cfg Config,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if engine == nil {
		return nil, fmt.Errorf("analysis engine required")
	}
	if cfg.UploadURLTTL <= 0 {
		return nil, fmt.Errorf("upload url ttl must be positive")
	}
	if cfg.ReadURLTTL <= 0 {
		return nil, fmt.Errorf("read url ttl must be positive")
	}
	if cfg.TrackPriceCents <= 0 {
		return nil, fmt.Errorf("track price must be positive")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		blobs:   blobs,
		engine:  engine,
		metrics: met,
		logg:    logg,
		cfg:     cfg,
	}, nil
}

func (s *service) Initiate(ctx context.Context, userID uuid.UUID, input InitiateInput) (*InitiateOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}

	uploadID := uuid.New()
	originalPath := buildOriginalPath(userID, uploadID, filename)

	contentType := mime.TypeByExtension(path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	expiresAt := time.Now().Add(s.cfg.UploadURLTTL)
	writeURL, err := s.blobs.SignedURL(s.blobs.OriginalsBucket(), originalPath, contentType, s.cfg.UploadURLTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateUpload(ctx, &models.Upload{
			ID:     uploadID,
			UserID: userID,
			Title:  title,
			Status: enums.UploadStatusUploading,
		}); err != nil {
			return err
		}
		return repo.CreateAsset(ctx, &models.Asset{
			UploadID:     uploadID,
			PathOriginal: originalPath,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist upload")
	}

	return &InitiateOutput{
		UploadID:     uploadID,
		WriteURL:     writeURL,
		OriginalPath: originalPath,
		ExpiresAt:    expiresAt,
	}, nil
}

// Finalize runs the analysis pipeline for one uploaded original. Only an
// upload still in `uploading` is accepted; the status transition at the end
// uses the same precondition, so two racing finalize calls cannot both land.
func (s *service) Finalize(ctx context.Context, uploadID, userID uuid.UUID) (*FinalizeOutput, error) {
	start := time.Now()
	output, err := s.finalize(ctx, uploadID, userID)
	if err != nil {
		s.metrics.ObserveFinalize("error", time.Since(start))
		return nil, err
	}
	s.metrics.ObserveFinalize("success", time.Since(start))
	return output, nil
}

func (s *service) finalize(ctx context.Context, uploadID, userID uuid.UUID) (*FinalizeOutput, error) {
	if uploadID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload id is required")
	}

	upload, err := s.repo.GetUpload(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	if userID != uuid.Nil && upload.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	if upload.Status != enums.UploadStatusUploading {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("upload is %s, finalize accepts uploading only", upload.Status))
	}

	asset, err := s.repo.GetAssetByUploadID(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}

	exists, err := s.blobs.ObjectExists(ctx, s.blobs.OriginalsBucket(), asset.PathOriginal)
	if err != nil {
		return nil, s.fatal(ctx, uploadID, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check original object"))
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "original has not been uploaded yet")
	}

	readURL, err := s.blobs.SignedReadURL(s.blobs.OriginalsBucket(), asset.PathOriginal, s.cfg.ReadURLTTL)
	if err != nil {
		return nil, s.fatal(ctx, uploadID, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign original read url"))
	}

	result, err := s.engine.Analyze(ctx, readURL)
	if err != nil {
		return nil, s.fatal(ctx, uploadID, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "analyze original"))
	}

	previewPath := buildPreviewPath(upload.UserID, uploadID)
	if err := s.blobs.Upload(ctx, s.blobs.PreviewsBucket(), previewPath, previewContentType, result.Preview); err != nil {
		return nil, s.fatal(ctx, uploadID, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload preview"))
	}
	if err := s.blobs.MakePublic(ctx, s.blobs.PreviewsBucket(), previewPath); err != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("make preview public failed for upload %s: %v", uploadID, err))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.SetAssetDerived(ctx, asset.ID, previewPath, result.DurationSeconds); err != nil {
			return err
		}
		if err := repo.CreateListing(ctx, &models.Listing{
			UploadID:   uploadID,
			PriceCents: s.cfg.TrackPriceCents,
		}); err != nil {
			return err
		}
		rows, err := repo.TransitionStatus(ctx, uploadID, enums.UploadStatusUploading, enums.UploadStatusProcessing)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "upload already finalized")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
			// A racing finalize won; its preview lives at the same path, so
			// leave the object alone.
			return nil, err
		}
		if delErr := s.blobs.DeleteObject(ctx, s.blobs.PreviewsBucket(), previewPath); delErr != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("orphaned preview cleanup failed for upload %s: %v", uploadID, delErr))
		}
		return nil, s.fatal(ctx, uploadID, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist derived asset"))
	}

	// Tag failure never unwinds a finished pipeline.
	if err := s.repo.CreateTag(ctx, &models.Tag{
		UploadID:   uploadID,
		Name:       bpmTagName,
		Value:      fmt.Sprintf("%d", result.BPM),
		Confidence: result.Confidence,
	}); err != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("bpm tag insert failed for upload %s: %v", uploadID, err))
	}

	return &FinalizeOutput{
		UploadID:        uploadID,
		PreviewPath:     previewPath,
		BPM:             result.BPM,
		DurationSeconds: result.DurationSeconds,
	}, nil
}

// fatal appends the diagnostic event row before handing the error back.
func (s *service) fatal(ctx context.Context, uploadID uuid.UUID, err error) error {
	event := &models.UploadEvent{
		UploadID: uploadID,
		Message:  err.Error(),
	}
	if insertErr := s.repo.CreateUploadEvent(ctx, event); insertErr != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("upload event insert failed for %s: %v", uploadID, insertErr))
	}
	return err
}

func (s *service) SetStatus(ctx context.Context, uploadID, userID uuid.UUID, status enums.UploadStatus) (*models.Upload, error) {
	if uploadID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload id is required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if !status.IsOwnerToggleable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("status must be %s or %s", enums.UploadStatusPublished, enums.UploadStatusPending))
	}

	upload, err := s.repo.GetUploadForUser(ctx, uploadID, userID)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		// Not-owner reads the same as absent.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	if upload.Status == enums.UploadStatusUploading {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "upload has not been finalized")
	}

	rows, err := s.repo.UpdateStatusOwned(ctx, uploadID, userID, status)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "upload has not been finalized")
	}

	upload.Status = status
	return upload, nil
}

func (s *service) Get(ctx context.Context, uploadID, userID uuid.UUID) (*Detail, error) {
	if uploadID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload id is required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	upload, err := s.repo.GetUploadForUser(ctx, uploadID, userID)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	asset, err := s.repo.GetAssetByUploadID(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Upload: upload, Asset: asset}
	if tag, err := s.repo.LatestTag(ctx, uploadID, bpmTagName); err == nil && tag != nil {
		if bpm, parseErr := parseBPMValue(tag.Value); parseErr == nil {
			detail.BPM = &bpm
		}
	}
	return detail, nil
}

func parseBPMValue(value string) (int, error) {
	var bpm int
	if _, err := fmt.Sscanf(value, "%d", &bpm); err != nil {
		return 0, err
	}
	return bpm, nil
}

func buildOriginalPath(userID, uploadID uuid.UUID, filename string) string {
	cleanName := sanitizeFileName(filename)
	if cleanName == "" {
		cleanName = uploadID.String()
	}
	return fmt.Sprintf("originals/%s/%s/%s", userID, uploadID, cleanName)
}

func buildPreviewPath(userID, uploadID uuid.UUID) string {
	return fmt.Sprintf("previews/%s/%s/%s", userID, uploadID, previewObjectName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
