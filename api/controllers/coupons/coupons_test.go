package coupons

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazar-market/bazar-backend/api/middleware"
	cartsvc "github.com/bazar-market/bazar-backend/internal/cart"
	couponsvc "github.com/bazar-market/bazar-backend/internal/coupons"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
)

type stubCoupons struct {
	applied    string
	orderValue int64
	removed    string
	created    couponsvc.CreateInput
	deleted    uuid.UUID
	err        error
}

func (s *stubCoupons) Apply(_ context.Context, _ uuid.UUID, code string, orderValueCents int64) (*cartsvc.View, error) {
	s.applied = code
	s.orderValue = orderValueCents
	return &cartsvc.View{CouponCode: &code}, s.err
}

func (s *stubCoupons) Remove(_ context.Context, _ uuid.UUID, code string) (*cartsvc.View, error) {
	s.removed = code
	return &cartsvc.View{}, s.err
}

func (s *stubCoupons) Create(_ context.Context, input couponsvc.CreateInput) (*models.Coupon, error) {
	s.created = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.Coupon{
		ID:              uuid.New(),
		Code:            input.Code,
		DiscountPercent: input.DiscountPercent,
		ValidFrom:       input.ValidFrom,
		ValidUntil:      input.ValidUntil,
		IsActive:        true,
	}, nil
}

func (s *stubCoupons) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = id
	return s.err
}

func (s *stubCoupons) List(context.Context) ([]models.Coupon, error) {
	return []models.Coupon{{ID: uuid.New(), Code: "SAVE10", DiscountPercent: decimal.NewFromInt(10)}}, s.err
}

func newRouter(svc CouponService) http.Handler {
	r := chi.NewRouter()
	r.Post("/coupons/apply", Apply(svc, nil))
	r.Get("/admin/coupons", AdminList(svc, nil))
	r.Post("/admin/coupons", AdminCreate(svc, nil))
	r.Delete("/admin/coupons/{couponId}", AdminDelete(svc, nil))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApplyTogglesOnFlag(t *testing.T) {
	svc := &stubCoupons{}
	h := newRouter(svc)

	rec := do(t, h, http.MethodPost, "/coupons/apply", `{"code":"SAVE10","orderValue":5000,"apply":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "SAVE10", svc.applied)
	assert.Equal(t, int64(5000), svc.orderValue)

	rec = do(t, h, http.MethodPost, "/coupons/apply", `{"code":"SAVE10","orderValue":5000,"apply":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SAVE10", svc.removed)
}

func TestApplyRequiresFlag(t *testing.T) {
	rec := do(t, newRouter(&stubCoupons{}), http.MethodPost, "/coupons/apply", `{"code":"SAVE10","orderValue":5000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplySurfacesConflict(t *testing.T) {
	svc := &stubCoupons{err: pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")}
	rec := do(t, newRouter(svc), http.MethodPost, "/coupons/apply", `{"code":"SAVE10","orderValue":5000,"apply":true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminCreateParsesDates(t *testing.T) {
	svc := &stubCoupons{}
	body := `{"code":"WELCOME","discount_percent":"12.5","valid_from":"2026-01-01","valid_until":"2026-02-01","minimum_order_cents":1000}`
	rec := do(t, newRouter(svc), http.MethodPost, "/admin/coupons", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), svc.created.ValidFrom)
	assert.True(t, svc.created.DiscountPercent.Equal(decimal.RequireFromString("12.5")))

	var envelope struct {
		Data couponResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "2026-02-01", envelope.Data.ValidUntil)
}

func TestAdminCreateRejectsBadDate(t *testing.T) {
	body := `{"code":"WELCOME","discount_percent":"10","valid_from":"01/01/2026","valid_until":"2026-02-01"}`
	rec := do(t, newRouter(&stubCoupons{}), http.MethodPost, "/admin/coupons", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDeleteAndList(t *testing.T) {
	svc := &stubCoupons{}
	h := newRouter(svc)
	id := uuid.New()

	rec := do(t, h, http.MethodDelete, "/admin/coupons/"+id.String(), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, svc.deleted)

	rec = do(t, h, http.MethodGet, "/admin/coupons", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []couponResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "SAVE10", envelope.Data[0].Code)
}
