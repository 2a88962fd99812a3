package transactions

import (
	"context"
	"fmt"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service records and lists payment audit rows.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, order models.Order) (bool, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Transaction, error)
}

type service struct {
	repo Repository
}

// NewService builds the transaction service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	return &service{repo: repo}, nil
}

// Record writes the audit row for a paid order. A second call for the same order is a no-op.
func (s *service) Record(ctx context.Context, tx *gorm.DB, order models.Order) (bool, error) {
	if order.PaymentOrderID == nil {
		return false, fmt.Errorf("order %s has no payment order", order.ID)
	}
	return s.repo.WithTx(tx).CreateIfAbsent(ctx, &models.Transaction{
		OrderID:        order.ID,
		SellerID:       order.SellerID,
		CustomerID:     order.UserID,
		PaymentOrderID: *order.PaymentOrderID,
		AmountCents:    order.TotalSellingCents,
	})
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Transaction, error) {
	out, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return out, nil
}
