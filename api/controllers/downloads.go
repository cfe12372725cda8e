package controllers

import (
	"net/http"

	"github.com/beatvault/beatvault-backend/api/responses"
	"github.com/beatvault/beatvault-backend/internal/purchase"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/logger"
)

// RequestDownload spends credits on a listing and returns a signed download URL.
func RequestDownload(svc purchase.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}

		userID, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := parseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grant, err := svc.RequestDownload(r.Context(), userID, listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, grant)
	}
}

// PurchaseHistory lists the caller's past downloads, newest first.
func PurchaseHistory(svc purchase.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}

		userID, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := parseHistoryLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchases, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, purchases)
	}
}
