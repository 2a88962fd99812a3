package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type productRepository interface {
	WithTx(tx *gorm.DB) *Repository
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// QuotaGate rejects listings that would exceed the seller's plan. It runs inside the
// insert's transaction.
type QuotaGate interface {
	EnsureCanAddProductTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) error
}

// Service exposes the catalog operations this core needs.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
}

type service struct {
	repo  productRepository
	tx    txRunner
	quota QuotaGate
}

// NewService builds the catalog service.
func NewService(repo productRepository, tx txRunner, quota QuotaGate) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if quota == nil {
		return nil, fmt.Errorf("quota gate required")
	}
	return &service{repo: repo, tx: tx, quota: quota}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	p, err := s.repo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return toDTO(p), nil
}

// Create lists a product for the seller once the plan quota allows it. The quota check
// and the insert share one transaction.
func (s *service) Create(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	var created *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.quota.EnsureCanAddProductTx(ctx, tx, sellerID); err != nil {
			return err
		}

		title := strings.TrimSpace(input.Title)
		if title == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
		}
		if input.MRPCents <= 0 || input.SellingCents <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "prices must be positive")
		}
		if input.SellingCents > input.MRPCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "selling price cannot exceed mrp")
		}

		var err error
		created, err = s.repo.WithTx(tx).Create(ctx, &models.Product{
			SellerID:     sellerID,
			Title:        title,
			Description:  input.Description,
			MRPCents:     input.MRPCents,
			SellingCents: input.SellingCents,
			IsActive:     true,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDTO(created), nil
}
