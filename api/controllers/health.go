package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/beatvault/beatvault-backend/api/responses"
	"github.com/beatvault/beatvault-backend/pkg/config"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessDeps names the dependencies the readiness probe checks.
type ReadinessDeps struct {
	DB    pinger
	Redis pinger
	Blobs pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BeatVault-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing dependency answers.
func HealthReady(cfg *config.Config, deps ReadinessDeps, logg *logger.Logger) http.HandlerFunc {
	checks := []struct {
		name string
		ping pinger
	}{
		{"db", deps.DB},
		{"redis", deps.Redis},
		{"storage", deps.Blobs},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BeatVault-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := make(map[string]string, len(checks))
		for _, check := range checks {
			if check.ping == nil {
				continue
			}
			if err := check.ping.Ping(ctx); err != nil {
				status[check.name] = "down"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" unavailable").WithDetails(status))
				return
			}
			status[check.name] = "ok"
		}

		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
