package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bazar-market/bazar-backend/internal/cart"
	"github.com/bazar-market/bazar-backend/pkg/db"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const usageConstraint = "ux_coupon_usages_user_coupon"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartCouponWriter interface {
	SnapshotTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, []models.CartItem, error)
	SetCouponTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, code *string, percent *decimal.Decimal) (*cart.View, error)
}

// Service applies coupons to carts and manages the coupon catalog.
type Service interface {
	Apply(ctx context.Context, userID uuid.UUID, code string, orderValueCents int64) (*cart.View, error)
	Remove(ctx context.Context, userID uuid.UUID, code string) (*cart.View, error)

	Create(ctx context.Context, input CreateInput) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.Coupon, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
}

// CreateInput is the admin payload for a new coupon.
type CreateInput struct {
	Code              string
	DiscountPercent   decimal.Decimal
	ValidFrom         time.Time
	ValidUntil        time.Time
	MinimumOrderCents int64
}

// ServiceParams wires the coupon service.
type ServiceParams struct {
	Repo  Repository
	Tx    txRunner
	Carts cartCouponWriter
	Now   func() time.Time
}

type service struct {
	repo  Repository
	tx    txRunner
	carts cartCouponWriter
	now   func() time.Time
}

// NewService builds the coupon service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart writer required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, tx: params.Tx, carts: params.Carts, now: now}, nil
}

// Apply consumes the coupon for the user and discounts their cart. Each user may
// consume a coupon once, ever, and a cart holds one coupon at a time.
func (s *service) Apply(ctx context.Context, userID uuid.UUID, code string, orderValueCents int64) (*cart.View, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	var view *cart.View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		coupon, err := s.findByCode(ctx, repo, code)
		if err != nil {
			return err
		}

		used, err := repo.HasUsage(ctx, userID, coupon.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check coupon usage")
		}
		if used {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
		}
		if orderValueCents < coupon.MinimumOrderCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "order value below coupon minimum").
				WithDetails(map[string]any{"minimum_order_cents": coupon.MinimumOrderCents})
		}
		if !isRedeemable(coupon, s.now()) {
			return pkgerrors.New(pkgerrors.CodeValidation, "coupon not active or expired")
		}

		// Replacing a stored coupon would burn its usage row without a discount.
		current, _, err := s.carts.SnapshotTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current.CouponCode != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "a coupon is already applied").
				WithDetails(map[string]any{"applied_code": *current.CouponCode})
		}

		if err := repo.InsertUsage(ctx, &models.CouponUsage{UserID: userID, CouponID: coupon.ID}); err != nil {
			if db.IsUniqueViolation(err, usageConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record coupon usage")
		}

		percent := coupon.DiscountPercent
		view, err = s.carts.SetCouponTx(ctx, tx, userID, &coupon.Code, &percent)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Remove takes the discount back off the cart. The usage row stays, so the same
// coupon cannot be applied again.
func (s *service) Remove(ctx context.Context, userID uuid.UUID, code string) (*cart.View, error) {
	code = normalizeCode(code)
	var view *cart.View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.findByCode(ctx, s.repo.WithTx(tx), code); err != nil {
			return err
		}
		var err error
		view, err = s.carts.SetCouponTx(ctx, tx, userID, nil, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	code := normalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if input.DiscountPercent.Sign() <= 0 || input.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be in (0, 100]")
	}
	from, until := truncateDay(input.ValidFrom), truncateDay(input.ValidUntil)
	if !from.Before(until) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid_from must be before valid_until")
	}
	if input.MinimumOrderCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum order value cannot be negative")
	}

	coupon := &models.Coupon{
		Code:              code,
		DiscountPercent:   input.DiscountPercent,
		ValidFrom:         from,
		ValidUntil:        until,
		MinimumOrderCents: input.MinimumOrderCents,
		IsActive:          true,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "ux_coupons_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete coupon")
		}
		if n == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil
	})
}

func (s *service) List(ctx context.Context) ([]models.Coupon, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	return c, nil
}

func (s *service) findByCode(ctx context.Context, repo Repository, code string) (*models.Coupon, error) {
	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid coupon code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	return coupon, nil
}

// isRedeemable requires the coupon to be active with today strictly between its bounds.
func isRedeemable(c *models.Coupon, now time.Time) bool {
	if !c.IsActive {
		return false
	}
	today := truncateDay(now)
	return truncateDay(c.ValidFrom).Before(today) && today.Before(truncateDay(c.ValidUntil))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
