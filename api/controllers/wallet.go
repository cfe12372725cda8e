package controllers

import (
	"net/http"

	"github.com/beatvault/beatvault-backend/api/responses"
	"github.com/beatvault/beatvault-backend/api/validators"
	"github.com/beatvault/beatvault-backend/internal/ledger"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/logger"
)

const defaultHistoryLimit = 20

// Wallet returns the caller's balance snapshot with recent ledger activity.
func Wallet(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
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

		wallet, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactions, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"wallet":       wallet,
			"transactions": transactions,
		})
	}
}

func parseHistoryLimit(r *http.Request) (int, error) {
	return validators.ParseQueryInt(r, "limit", defaultHistoryLimit, 1, 100)
}
