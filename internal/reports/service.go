package reports

import (
	"context"
	"fmt"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service maintains the monotonic seller counters. Earnings and refunds are separate
// running totals and nothing is ever decremented.
type Service interface {
	Get(ctx context.Context, sellerID uuid.UUID) (*models.SellerReport, error)
	RecordPayment(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, earningsCents int64, sales int) error
	RecordCancellation(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, refundCents int64) error
}

type service struct {
	repo Repository
}

// NewService builds the seller report service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("report repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, sellerID uuid.UUID) (*models.SellerReport, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	report, err := s.repo.Ensure(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller report")
	}
	return report, nil
}

func (s *service) RecordPayment(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, earningsCents int64, sales int) error {
	return s.increment(ctx, tx, sellerID, map[string]int64{
		"total_orders":         1,
		"total_earnings_cents": earningsCents,
		"total_sales":          int64(sales),
	})
}

func (s *service) RecordCancellation(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, refundCents int64) error {
	return s.increment(ctx, tx, sellerID, map[string]int64{
		"cancelled_orders":    1,
		"total_refunds_cents": refundCents,
	})
}

func (s *service) increment(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, deltas map[string]int64) error {
	for column, delta := range deltas {
		if delta < 0 {
			return fmt.Errorf("negative delta for %s", column)
		}
	}
	repo := s.repo.WithTx(tx)
	if _, err := repo.Ensure(ctx, sellerID); err != nil {
		return fmt.Errorf("ensure seller report: %w", err)
	}
	if err := repo.Increment(ctx, sellerID, deltas); err != nil {
		return fmt.Errorf("increment seller report: %w", err)
	}
	return nil
}
