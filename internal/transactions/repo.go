package transactions

import (
	"context"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists the per-order payment audit rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Transaction, error)
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the transaction repository to the provided GORM handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateIfAbsent inserts the row unless one already exists for the order. It reports
// whether a row was written.
func (r *repository) CreateIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(txn)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Transaction, error) {
	var out []models.Transaction
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// DeleteByOrder is only used when a seller deletes the order itself.
func (r *repository) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.Transaction{}).Error
}
