package product

import (
	"context"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists catalog rows. The catalog itself is owned elsewhere; this core only
// reads prices and counts listings for the subscription quota.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID returns the product regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindActiveByID returns the product only when it is listed.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountActiveBySeller counts the listed products of a seller.
func (r *Repository) CountActiveBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("seller_id = ? AND is_active = ?", sellerID, true).
		Count(&count).Error
	return count, err
}

// CountActiveBySellerTx counts inside tx so the result holds for an insert in the same tx.
func (r *Repository) CountActiveBySellerTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (int64, error) {
	return r.WithTx(tx).CountActiveBySeller(ctx, sellerID)
}

// Create inserts the product row.
func (r *Repository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}
