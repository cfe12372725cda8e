package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/beatvault/beatvault-backend/api/controllers"
	"github.com/beatvault/beatvault-backend/api/routes"
	"github.com/beatvault/beatvault-backend/internal/analysis"
	"github.com/beatvault/beatvault-backend/internal/catalog"
	"github.com/beatvault/beatvault-backend/internal/credits"
	"github.com/beatvault/beatvault-backend/internal/ledger"
	"github.com/beatvault/beatvault-backend/internal/purchase"
	"github.com/beatvault/beatvault-backend/internal/uploads"
	stripewebhook "github.com/beatvault/beatvault-backend/internal/webhooks/stripe"
	"github.com/beatvault/beatvault-backend/pkg/config"
	"github.com/beatvault/beatvault-backend/pkg/db"
	"github.com/beatvault/beatvault-backend/pkg/logger"
	"github.com/beatvault/beatvault-backend/pkg/metrics"
	"github.com/beatvault/beatvault-backend/pkg/migrate"
	"github.com/beatvault/beatvault-backend/pkg/redis"
	"github.com/beatvault/beatvault-backend/pkg/storage/gcs"
	"github.com/beatvault/beatvault-backend/pkg/stripe"
)

const webhookDedupeTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap cloud storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing cloud storage", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	engine, err := analysis.NewEngine(cfg.Analysis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build analysis engine", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(dbClient, ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	uploadsService, err := uploads.NewService(
		dbClient,
		uploads.NewRepository(dbClient.DB()),
		gcsClient,
		engine,
		pipelineMetrics,
		logg,
		uploads.Config{
			UploadURLTTL:    cfg.GCS.UploadURLExpiry,
			ReadURLTTL:      cfg.GCS.DownloadURLExpiry,
			TrackPriceCents: cfg.Credits.TrackPriceCents,
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create uploads service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	purchaseService, err := purchase.NewService(
		purchase.NewRepository(dbClient.DB()),
		ledgerService,
		gcsClient,
		pipelineMetrics,
		logg,
		cfg.GCS.DownloadURLExpiry,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase service", err)
		os.Exit(1)
	}

	creditsService, err := credits.NewService(
		credits.NewStripeClient(stripeClient),
		cfg.Credits,
		stripeClient.SuccessURL(),
		stripeClient.CancelURL(),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create credits service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Ledger:  ledgerService,
		Metrics: pipelineMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookDedupeTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			Redis:    redisClient,
			Registry: registry,
			Readiness: controllers.ReadinessDeps{
				DB:    dbClient,
				Redis: redisClient,
				Blobs: gcsClient,
			},
			Uploads:            uploadsService,
			Catalog:            catalogService,
			Purchase:           purchaseService,
			Ledger:             ledgerService,
			Credits:            creditsService,
			StripeClient:       stripeClient,
			StripeWebhook:      webhookService,
			StripeWebhookGuard: webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
