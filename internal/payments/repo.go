package payments

import (
	"context"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists payment orders and the payment columns of their child orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, po *models.PaymentOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.PaymentOrder, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	MarkPaidIfUnpaid(ctx context.Context, id uuid.UUID, paymentID, linkID string) (int64, error)
	AttachOrders(ctx context.Context, paymentOrderID uuid.UUID, orderIDs []uuid.UUID) error
	UpdateChildPayments(ctx context.Context, paymentOrderID uuid.UUID, fields map[string]any, excludeStatus *enums.OrderStatus) error
	ListChildOrders(ctx context.Context, paymentOrderID uuid.UUID) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the payment order repository to the provided GORM handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, po *models.PaymentOrder) error {
	return r.db.WithContext(ctx).Omit("Orders").Create(po).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error) {
	var po models.PaymentOrder
	err := r.db.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("seller_id ASC") }).
		Preload("Orders.Items").
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) FindByPaymentID(ctx context.Context, paymentID string) (*models.PaymentOrder, error) {
	var po models.PaymentOrder
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&po).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// MarkPaidIfUnpaid flips the payment order to paid unless it already is. Zero rows
// affected means another delivery got there first.
func (r *repository) MarkPaidIfUnpaid(ctx context.Context, id uuid.UUID, paymentID, linkID string) (int64, error) {
	fields := map[string]any{
		"status":         enums.PaymentOrderStatusPaid,
		"payment_status": true,
	}
	if paymentID != "" {
		fields["payment_id"] = paymentID
	}
	if linkID != "" {
		fields["payment_link_id"] = linkID
	}
	res := r.db.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("id = ? AND status <> ?", id, enums.PaymentOrderStatusPaid).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *repository) AttachOrders(ctx context.Context, paymentOrderID uuid.UUID, orderIDs []uuid.UUID) error {
	if len(orderIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN ?", orderIDs).
		Update("payment_order_id", paymentOrderID).Error
}

func (r *repository) UpdateChildPayments(ctx context.Context, paymentOrderID uuid.UUID, fields map[string]any, excludeStatus *enums.OrderStatus) error {
	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_order_id = ?", paymentOrderID)
	if excludeStatus != nil {
		q = q.Where("status <> ?", *excludeStatus)
	}
	return q.Updates(fields).Error
}

func (r *repository) ListChildOrders(ctx context.Context, paymentOrderID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("payment_order_id = ?", paymentOrderID).
		Order("seller_id ASC").
		Find(&out).Error
	return out, err
}
