package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/beatvault/beatvault-backend/internal/catalog"
	"github.com/beatvault/beatvault-backend/internal/credits"
	"github.com/beatvault/beatvault-backend/internal/ledger"
	"github.com/beatvault/beatvault-backend/internal/purchase"
	"github.com/beatvault/beatvault-backend/internal/uploads"
	pkgAuth "github.com/beatvault/beatvault-backend/pkg/auth"
	"github.com/beatvault/beatvault-backend/pkg/config"
	"github.com/beatvault/beatvault-backend/pkg/db/models"
	"github.com/beatvault/beatvault-backend/pkg/enums"
	"github.com/beatvault/beatvault-backend/pkg/logger"
)

type stubUploadsService struct{}

func (stubUploadsService) Initiate(ctx context.Context, userID uuid.UUID, input uploads.InitiateInput) (*uploads.InitiateOutput, error) {
	return &uploads.InitiateOutput{UploadID: uuid.New()}, nil
}

func (stubUploadsService) Finalize(ctx context.Context, uploadID, userID uuid.UUID) (*uploads.FinalizeOutput, error) {
	return &uploads.FinalizeOutput{UploadID: uploadID}, nil
}

func (stubUploadsService) SetStatus(ctx context.Context, uploadID, userID uuid.UUID, status enums.UploadStatus) (*models.Upload, error) {
	return &models.Upload{ID: uploadID, Status: status}, nil
}

func (stubUploadsService) Get(ctx context.Context, uploadID, userID uuid.UUID) (*uploads.Detail, error) {
	return &uploads.Detail{Upload: &models.Upload{ID: uploadID}}, nil
}

type stubCatalogService struct{}

func (stubCatalogService) Browse(ctx context.Context, input catalog.BrowseInput) (*catalog.BrowseOutput, error) {
	return &catalog.BrowseOutput{}, nil
}

type stubPurchaseService struct{}

func (stubPurchaseService) RequestDownload(ctx context.Context, userID, listingID uuid.UUID) (*purchase.DownloadGrant, error) {
	return &purchase.DownloadGrant{DownloadURL: "https://signed.example/get"}, nil
}

func (stubPurchaseService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Purchase, error) {
	return nil, nil
}

type stubLedgerService struct{}

func (stubLedgerService) Spend(ctx context.Context, input ledger.SpendInput) (*ledger.SpendResult, error) {
	return &ledger.SpendResult{}, nil
}

func (stubLedgerService) Earn(ctx context.Context, input ledger.EarnInput) (*ledger.EarnResult, error) {
	return &ledger.EarnResult{}, nil
}

func (stubLedgerService) Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return &models.Wallet{UserID: userID}, nil
}

func (stubLedgerService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	return nil, nil
}

type stubCreditsService struct{}

func (stubCreditsService) CreateTopUp(ctx context.Context, userID uuid.UUID, amount int) (*credits.TopUpOutput, error) {
	return &credits.TopUpOutput{CheckoutURL: "https://checkout.stripe.test/cs"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		Uploads:  stubUploadsService{},
		Catalog:  stubCatalogService{},
		Purchase: stubPurchaseService{},
		Ledger:   stubLedgerService{},
		Credits:  stubCreditsService{},
	})
}

func mintToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestBrowseIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/browse", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 without token got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, target := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/ping"},
		{http.MethodPost, "/api/v1/uploads/init"},
		{http.MethodPost, "/api/v1/downloads/" + uuid.NewString()},
		{http.MethodGet, "/api/v1/wallet"},
		{http.MethodPost, "/api/v1/credits/checkout"},
	} {
		req := httptest.NewRequest(target.method, target.path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 without token got %d", target.method, target.path, resp.Code)
		}
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestWalletReachableWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestDownloadRouteReachableWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/downloads/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestWebhookRouteRejectsUnsignedPayload(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	// No webhook service wired in the stub router.
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without webhook service got %d", resp.Code)
	}
}
