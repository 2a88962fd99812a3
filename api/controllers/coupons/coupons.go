package coupons

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazar-market/bazar-backend/api/controllers/endpoint"
	cartsvc "github.com/bazar-market/bazar-backend/internal/cart"
	couponsvc "github.com/bazar-market/bazar-backend/internal/coupons"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

const dateLayout = "2006-01-02"

// CouponService is implemented by internal/coupons.
type CouponService interface {
	Apply(ctx context.Context, userID uuid.UUID, code string, orderValueCents int64) (*cartsvc.View, error)
	Remove(ctx context.Context, userID uuid.UUID, code string) (*cartsvc.View, error)
	Create(ctx context.Context, input couponsvc.CreateInput) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.Coupon, error)
}

type applyRequest struct {
	Code       string `json:"code" validate:"required,max=64"`
	OrderValue int64  `json:"orderValue" validate:"min=0"`
	Apply      *bool  `json:"apply" validate:"required"`
}

type createRequest struct {
	Code              string          `json:"code" validate:"required,notblank,code,max=64"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	ValidFrom         string          `json:"valid_from" validate:"required"`
	ValidUntil        string          `json:"valid_until" validate:"required"`
	MinimumOrderCents int64           `json:"minimum_order_cents" validate:"min=0"`
}

type couponResponse struct {
	ID                uuid.UUID       `json:"id"`
	Code              string          `json:"code"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	ValidFrom         string          `json:"valid_from"`
	ValidUntil        string          `json:"valid_until"`
	MinimumOrderCents int64           `json:"minimum_order_cents"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
}

const unavailable = "coupon service"

// Apply applies (apply=true) or removes (apply=false) a coupon on the caller's cart.
func Apply(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		userID, err := endpoint.UserID(r)
		if err != nil {
			return nil, err
		}
		req, err := endpoint.Body[applyRequest](r)
		if err != nil {
			return nil, err
		}
		if *req.Apply {
			return svc.Apply(r.Context(), userID, req.Code, req.OrderValue)
		}
		return svc.Remove(r.Context(), userID, req.Code)
	})
}

func AdminList(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		list, err := svc.List(r.Context())
		if err != nil {
			return nil, err
		}
		out := make([]couponResponse, len(list))
		for i := range list {
			out[i] = toResponse(&list[i])
		}
		return out, nil
	})
}

func AdminCreate(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.JSON(logg, http.StatusCreated, func(r *http.Request) (any, error) {
		req, err := endpoint.Body[createRequest](r)
		if err != nil {
			return nil, err
		}
		input, err := req.toInput()
		if err != nil {
			return nil, err
		}
		coupon, err := svc.Create(r.Context(), input)
		if err != nil {
			return nil, err
		}
		return toResponse(coupon), nil
	})
}

// AdminDelete removes a coupon. Usage history is kept.
func AdminDelete(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.JSON(logg, http.StatusNoContent, func(r *http.Request) (any, error) {
		id, err := endpoint.PathID(r, "couponId")
		if err != nil {
			return nil, err
		}
		return nil, svc.Delete(r.Context(), id)
	})
}

func (c createRequest) toInput() (couponsvc.CreateInput, error) {
	from, err := parseDate("valid_from", c.ValidFrom)
	if err != nil {
		return couponsvc.CreateInput{}, err
	}
	until, err := parseDate("valid_until", c.ValidUntil)
	if err != nil {
		return couponsvc.CreateInput{}, err
	}
	return couponsvc.CreateInput{
		Code:              c.Code,
		DiscountPercent:   c.DiscountPercent,
		ValidFrom:         from,
		ValidUntil:        until,
		MinimumOrderCents: c.MinimumOrderCents,
	}, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date").
			WithDetails(map[string]any{"field": field, "layout": dateLayout})
	}
	return t, nil
}

func toResponse(c *models.Coupon) couponResponse {
	return couponResponse{
		ID:                c.ID,
		Code:              c.Code,
		DiscountPercent:   c.DiscountPercent,
		ValidFrom:         c.ValidFrom.Format(dateLayout),
		ValidUntil:        c.ValidUntil.Format(dateLayout),
		MinimumOrderCents: c.MinimumOrderCents,
		IsActive:          c.IsActive,
		CreatedAt:         c.CreatedAt,
	}
}
