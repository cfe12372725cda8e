package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beatvault/beatvault-backend/api/controllers"
	webhookcontrollers "github.com/beatvault/beatvault-backend/api/controllers/webhooks"
	"github.com/beatvault/beatvault-backend/api/middleware"
	"github.com/beatvault/beatvault-backend/internal/catalog"
	"github.com/beatvault/beatvault-backend/internal/credits"
	"github.com/beatvault/beatvault-backend/internal/ledger"
	"github.com/beatvault/beatvault-backend/internal/purchase"
	"github.com/beatvault/beatvault-backend/internal/uploads"
	stripewebhook "github.com/beatvault/beatvault-backend/internal/webhooks/stripe"
	"github.com/beatvault/beatvault-backend/pkg/config"
	"github.com/beatvault/beatvault-backend/pkg/logger"
	"github.com/beatvault/beatvault-backend/pkg/redis"
	"github.com/beatvault/beatvault-backend/pkg/stripe"
)

// Deps collects everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Readiness controllers.ReadinessDeps

	Uploads  uploads.Service
	Catalog  catalog.Service
	Purchase purchase.Service
	Ledger   ledger.Service
	Credits  credits.Service

	StripeClient       *stripe.Client
	StripeWebhook      *stripewebhook.Service
	StripeWebhookGuard *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	apiPolicy := middleware.NewRateLimitPolicy(
		"api",
		cfg.RateLimit.APIWindow,
		cfg.RateLimit.APIIPLimit,
		cfg.RateLimit.APIUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Readiness, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		// Typed nils would slip past the controller's interface nil checks.
		if deps.StripeWebhook == nil || deps.StripeClient == nil || deps.StripeWebhookGuard == nil {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(nil, nil, nil, logg))
		} else {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, deps.StripeWebhookGuard, logg))
		}
	})

	r.Route("/api/v1/browse", func(r chi.Router) {
		r.Get("/", controllers.Browse(deps.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
			r.Use(middleware.RateLimit(apiPolicy, deps.Redis, logg))
		}

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/init", controllers.UploadInit(deps.Uploads, logg))
			r.Post("/finalize", controllers.UploadFinalize(deps.Uploads, logg))
			r.Patch("/{uploadId}", controllers.UploadSetStatus(deps.Uploads, logg))
			r.Get("/{uploadId}", controllers.UploadGet(deps.Uploads, logg))
		})

		r.Route("/downloads", func(r chi.Router) {
			r.Get("/", controllers.PurchaseHistory(deps.Purchase, logg))
			r.Post("/{listingId}", controllers.RequestDownload(deps.Purchase, logg))
		})

		r.Get("/wallet", controllers.Wallet(deps.Ledger, logg))
		r.Post("/credits/checkout", controllers.CreditsCheckout(deps.Credits, logg))
	})

	return r
}
