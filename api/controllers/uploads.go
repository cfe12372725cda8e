package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/beatvault/beatvault-backend/api/middleware"
	"github.com/beatvault/beatvault-backend/api/responses"
	"github.com/beatvault/beatvault-backend/api/validators"
	"github.com/beatvault/beatvault-backend/internal/uploads"
	"github.com/beatvault/beatvault-backend/pkg/enums"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/logger"
)

type uploadInitRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Filename string `json:"filename" validate:"required,min=1,max=255"`
}

type uploadFinalizeRequest struct {
	UploadID string `json:"upload_id" validate:"required,uuid"`
}

type uploadStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UploadInit creates the upload record and hands back a signed PUT URL.
func UploadInit(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		userID, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload uploadInitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Initiate(r.Context(), userID, uploads.InitiateInput{
			Title:    validators.SanitizeString(payload.Title, 200),
			Filename: payload.Filename,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// UploadFinalize runs the analysis pipeline against a completed upload.
func UploadFinalize(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		userID, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload uploadFinalizeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploadID, err := uuid.Parse(payload.UploadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload id"))
			return
		}

		resp, err := svc.Finalize(r.Context(), uploadID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

// UploadSetStatus toggles a finalized upload between published and pending.
func UploadSetStatus(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		userID, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploadID, err := parseUUIDParam(r, "uploadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload uploadStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseUploadStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		upload, err := svc.SetStatus(r.Context(), uploadID, userID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, upload)
	}
}

// UploadGet returns the owner's view of one upload.
func UploadGet(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		userID, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploadID, err := parseUUIDParam(r, "uploadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), uploadID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

func authedUser(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return userID, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
