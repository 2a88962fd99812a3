package reports

import (
	"context"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds the seller report repository to the provided GORM handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Repository persists per-seller counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Ensure(ctx context.Context, sellerID uuid.UUID) (*models.SellerReport, error)
	Increment(ctx context.Context, sellerID uuid.UUID, deltas map[string]int64) error
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Ensure returns the seller's report, inserting a zeroed row on first use.
func (r *repository) Ensure(ctx context.Context, sellerID uuid.UUID) (*models.SellerReport, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "seller_id"}},
		DoNothing: true,
	}).Create(&models.SellerReport{SellerID: sellerID}).Error; err != nil {
		return nil, err
	}

	var report models.SellerReport
	if err := db.Where("seller_id = ?", sellerID).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// Increment adds each delta to its column in a single UPDATE so concurrent writers
// never lose counts.
func (r *repository) Increment(ctx context.Context, sellerID uuid.UUID, deltas map[string]int64) error {
	updates := make(map[string]any, len(deltas)+1)
	for column, delta := range deltas {
		updates[column] = gorm.Expr(column+" + ?", delta)
	}
	return r.db.WithContext(ctx).
		Model(&models.SellerReport{}).
		Where("seller_id = ?", sellerID).
		Updates(updates).Error
}
