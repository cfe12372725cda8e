package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/beatvault/beatvault-backend/api/middleware"
	"github.com/beatvault/beatvault-backend/internal/uploads"
	"github.com/beatvault/beatvault-backend/pkg/db/models"
	"github.com/beatvault/beatvault-backend/pkg/enums"
)

type testUploadsService struct {
	initiateFn  func(ctx context.Context, userID uuid.UUID, input uploads.InitiateInput) (*uploads.InitiateOutput, error)
	finalizeFn  func(ctx context.Context, uploadID, userID uuid.UUID) (*uploads.FinalizeOutput, error)
	setStatusFn func(ctx context.Context, uploadID, userID uuid.UUID, status enums.UploadStatus) (*models.Upload, error)
	getFn       func(ctx context.Context, uploadID, userID uuid.UUID) (*uploads.Detail, error)
}

func (s *testUploadsService) Initiate(ctx context.Context, userID uuid.UUID, input uploads.InitiateInput) (*uploads.InitiateOutput, error) {
	if s.initiateFn != nil {
		return s.initiateFn(ctx, userID, input)
	}
	return &uploads.InitiateOutput{}, nil
}

func (s *testUploadsService) Finalize(ctx context.Context, uploadID, userID uuid.UUID) (*uploads.FinalizeOutput, error) {
	if s.finalizeFn != nil {
		return s.finalizeFn(ctx, uploadID, userID)
	}
	return &uploads.FinalizeOutput{}, nil
}

func (s *testUploadsService) SetStatus(ctx context.Context, uploadID, userID uuid.UUID, status enums.UploadStatus) (*models.Upload, error) {
	if s.setStatusFn != nil {
		return s.setStatusFn(ctx, uploadID, userID, status)
	}
	return &models.Upload{}, nil
}

func (s *testUploadsService) Get(ctx context.Context, uploadID, userID uuid.UUID) (*uploads.Detail, error) {
	if s.getFn != nil {
		return s.getFn(ctx, uploadID, userID)
	}
	return &uploads.Detail{}, nil
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withURLParam(req *http.Request, name, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestUploadInitSuccess(t *testing.T) {
	userID := uuid.New()
	uploadID := uuid.New()
	svc := &testUploadsService{
		initiateFn: func(ctx context.Context, uid uuid.UUID, input uploads.InitiateInput) (*uploads.InitiateOutput, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			if input.Title != "Midnight Drive" || input.Filename != "midnight drive.wav" {
				t.Fatalf("unexpected input %+v", input)
			}
			return &uploads.InitiateOutput{
				UploadID:     uploadID,
				WriteURL:     "https://signed.example/put",
				OriginalPath: "originals/" + uid.String() + "/" + uploadID.String() + "/midnight-drive.wav",
			}, nil
		},
	}

	body := `{"title":"Midnight Drive","filename":"midnight drive.wav"}`
	req := authedRequest(http.MethodPost, "/api/v1/uploads/init", body, userID)
	rec := httptest.NewRecorder()
	UploadInit(svc, nil)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data uploads.InitiateOutput `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.UploadID != uploadID {
		t.Fatalf("unexpected upload id %s", envelope.Data.UploadID)
	}
	if envelope.Data.WriteURL == "" {
		t.Fatal("expected signed url in response")
	}
}

func TestUploadInitRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/init", strings.NewReader(`{"title":"x","filename":"x.wav"}`))
	rec := httptest.NewRecorder()
	UploadInit(&testUploadsService{}, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUploadInitRejectsEmptyBody(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/uploads/init", `{}`, uuid.New())
	rec := httptest.NewRecorder()
	UploadInit(&testUploadsService{}, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestUploadFinalizeSuccess(t *testing.T) {
	userID := uuid.New()
	uploadID := uuid.New()
	svc := &testUploadsService{
		finalizeFn: func(ctx context.Context, up, uid uuid.UUID) (*uploads.FinalizeOutput, error) {
			if up != uploadID || uid != userID {
				t.Fatalf("unexpected ids %s %s", up, uid)
			}
			return &uploads.FinalizeOutput{UploadID: up, PreviewPath: "previews/p.mp3", BPM: 128, DurationSeconds: 95}, nil
		},
	}

	body := `{"upload_id":"` + uploadID.String() + `"}`
	req := authedRequest(http.MethodPost, "/api/v1/uploads/finalize", body, userID)
	rec := httptest.NewRecorder()
	UploadFinalize(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data uploads.FinalizeOutput `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.BPM != 128 {
		t.Fatalf("unexpected bpm %d", envelope.Data.BPM)
	}
}

func TestUploadFinalizeRejectsBadID(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/uploads/finalize", `{"upload_id":"not-a-uuid"}`, uuid.New())
	rec := httptest.NewRecorder()
	UploadFinalize(&testUploadsService{}, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadSetStatusSuccess(t *testing.T) {
	userID := uuid.New()
	uploadID := uuid.New()
	var seenStatus enums.UploadStatus
	svc := &testUploadsService{
		setStatusFn: func(ctx context.Context, up, uid uuid.UUID, status enums.UploadStatus) (*models.Upload, error) {
			seenStatus = status
			return &models.Upload{Status: status}, nil
		},
	}

	req := authedRequest(http.MethodPatch, "/api/v1/uploads/"+uploadID.String(), `{"status":"published"}`, userID)
	req = withURLParam(req, "uploadId", uploadID.String())
	rec := httptest.NewRecorder()
	UploadSetStatus(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if seenStatus != enums.UploadStatusPublished {
		t.Fatalf("unexpected status %s", seenStatus)
	}
}

func TestUploadSetStatusRejectsUnknownStatus(t *testing.T) {
	uploadID := uuid.New()
	req := authedRequest(http.MethodPatch, "/api/v1/uploads/"+uploadID.String(), `{"status":"archived"}`, uuid.New())
	req = withURLParam(req, "uploadId", uploadID.String())
	rec := httptest.NewRecorder()
	UploadSetStatus(&testUploadsService{}, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadGetSuccess(t *testing.T) {
	userID := uuid.New()
	uploadID := uuid.New()
	bpm := 140
	svc := &testUploadsService{
		getFn: func(ctx context.Context, up, uid uuid.UUID) (*uploads.Detail, error) {
			if up != uploadID || uid != userID {
				t.Fatalf("unexpected ids %s %s", up, uid)
			}
			return &uploads.Detail{Upload: &models.Upload{ID: up}, BPM: &bpm}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/uploads/"+uploadID.String(), "", userID)
	req = withURLParam(req, "uploadId", uploadID.String())
	rec := httptest.NewRecorder()
	UploadGet(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}
