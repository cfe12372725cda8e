package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/pagination"
)

const maxBPM = 300

// Service exposes the public marketplace browse surface.
type Service interface {
	Browse(ctx context.Context, input BrowseInput) (*BrowseOutput, error)
}

// BrowseInput carries optional BPM range filtering plus cursor pagination.
type BrowseInput struct {
	BPMMin *int
	BPMMax *int
	Page   pagination.Params
}

// Card is one marketplace entry as buyers see it.
type Card struct {
	ListingID       uuid.UUID `json:"listing_id"`
	UploadID        uuid.UUID `json:"upload_id"`
	Title           string    `json:"title"`
	PriceCents      int       `json:"price_cents"`
	PriceCredits    int       `json:"price_credits"`
	PreviewPath     *string   `json:"path_preview,omitempty"`
	BPM             *int      `json:"bpm,omitempty"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// BrowseOutput is a page of cards with an opaque continuation cursor.
type BrowseOutput struct {
	Items      []Card `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires the catalog browse service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Browse(ctx context.Context, input BrowseInput) (*BrowseOutput, error) {
	if err := validateBPMRange(input.BPMMin, input.BPMMax); err != nil {
		return nil, err
	}

	cursor, err := pagination.ParseCursor(input.Page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListPublished(ctx, ListParams{
		BPMMin: input.BPMMin,
		BPMMax: input.BPMMax,
		Cursor: cursor,
		Limit:  input.Page.Limit,
	})
	if err != nil {
		return nil, err
	}

	output := &BrowseOutput{Items: make([]Card, 0, len(rows))}
	for _, row := range rows {
		output.Items = append(output.Items, Card{
			ListingID:       row.ListingID,
			UploadID:        row.UploadID,
			Title:           row.Title,
			PriceCents:      row.PriceCents,
			PriceCredits:    (row.PriceCents + 99) / 100,
			PreviewPath:     row.PathPreview,
			BPM:             row.BPM,
			DurationSeconds: row.DurationSeconds,
			CreatedAt:       row.CreatedAt,
		})
	}
	if next != nil {
		output.NextCursor = pagination.EncodeCursor(*next)
	}
	return output, nil
}

// validateBPMRange requires both bounds or neither, within [0, 300] and
// non-inverted.
func validateBPMRange(min, max *int) error {
	if min == nil && max == nil {
		return nil
	}
	if min == nil || max == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bpm_min and bpm_max must be provided together")
	}
	if *min < 0 || *max > maxBPM {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("bpm range must fall within [0, %d]", maxBPM))
	}
	if *min > *max {
		return pkgerrors.New(pkgerrors.CodeValidation, "bpm_min must not exceed bpm_max")
	}
	return nil
}
