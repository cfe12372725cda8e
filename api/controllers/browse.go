package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/beatvault/beatvault-backend/api/responses"
	"github.com/beatvault/beatvault-backend/api/validators"
	"github.com/beatvault/beatvault-backend/internal/catalog"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/logger"
	"github.com/beatvault/beatvault-backend/pkg/pagination"
)

// Browse lists published tracks, newest first, with optional BPM filtering.
func Browse(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bpmMin, err := optionalQueryInt(r, "bpm_min")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bpmMax, err := optionalQueryInt(r, "bpm_max")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Browse(r.Context(), catalog.BrowseInput{
			BPMMin: bpmMin,
			BPMMax: bpmMax,
			Page: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

func optionalQueryInt(r *http.Request, key string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return &value, nil
}
