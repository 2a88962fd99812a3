package controllers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/api/middleware"
	productsvc "github.com/bazar-market/bazar-backend/internal/products"
	"github.com/bazar-market/bazar-backend/pkg/config"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

type stubProductService struct {
	created  productsvc.CreateProductInput
	sellerID uuid.UUID
	err      error
}

func (s *stubProductService) Get(_ context.Context, id uuid.UUID) (*productsvc.ProductDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &productsvc.ProductDTO{ID: id, Title: "Kurta"}, nil
}

func (s *stubProductService) Create(_ context.Context, sellerID uuid.UUID, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	s.sellerID = sellerID
	s.created = input
	if s.err != nil {
		return nil, s.err
	}
	return &productsvc.ProductDTO{ID: uuid.New(), SellerID: sellerID, Title: input.Title}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func TestSellerCreateProduct(t *testing.T) {
	logg := testLogger()
	sellerID := uuid.New()

	makeRequest := func(svc *stubProductService, ctx context.Context, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/seller/products", bytes.NewReader([]byte(body)))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		SellerCreateProduct(svc, logg).ServeHTTP(rec, req)
		return rec
	}
	sellerCtx := middleware.WithSellerID(middleware.WithUserID(context.Background(), uuid.NewString()), sellerID.String())
	body := `{"title":"  Kurta  ","mrp_cents":2000,"selling_cents":1500}`

	t.Run("missing seller", func(t *testing.T) {
		rec := makeRequest(&stubProductService{}, middleware.WithUserID(context.Background(), uuid.NewString()), body)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 when seller missing, got %d", rec.Code)
		}
	})

	t.Run("quota exceeded", func(t *testing.T) {
		svc := &stubProductService{err: pkgerrors.New(pkgerrors.CodeValidation, "product quota exceeded")}
		rec := makeRequest(svc, sellerCtx, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 on quota, got %d", rec.Code)
		}
	})

	t.Run("created", func(t *testing.T) {
		svc := &stubProductService{}
		rec := makeRequest(svc, sellerCtx, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
		}
		if svc.sellerID != sellerID || svc.created.Title != "Kurta" {
			t.Fatalf("unexpected create call seller=%s input=%+v", svc.sellerID, svc.created)
		}
	})
}

func TestPublicGetProduct(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/products/{productId}", PublicGetProduct(&stubProductService{}, testLogger()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+uuid.NewString(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	missing := chi.NewRouter()
	missing.Get("/products/{productId}", PublicGetProduct(&stubProductService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}, testLogger()))
	rec = httptest.NewRecorder()
	missing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{"db": stubPinger{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{"redis": stubPinger{err: errors.New("down")}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
