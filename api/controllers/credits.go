package controllers

import (
	"net/http"

	"github.com/beatvault/beatvault-backend/api/responses"
	"github.com/beatvault/beatvault-backend/api/validators"
	"github.com/beatvault/beatvault-backend/internal/credits"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/logger"
)

type creditsCheckoutRequest struct {
	Credits int `json:"credits" validate:"required,min=1"`
}

// CreditsCheckout opens a Stripe checkout for the fixed credit package.
func CreditsCheckout(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		userID, err := authedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload creditsCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.CreateTopUp(r.Context(), userID, payload.Credits)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}
