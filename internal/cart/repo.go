package cart

import (
	"context"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.CartItem, error)
	InsertItemIfAbsent(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	UpdateItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	SaveCart(ctx context.Context, c *models.Cart) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the cart repository to the provided GORM handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// EnsureCart returns the user's cart, creating it on first use. Concurrent creators
// collapse onto the unique user_id index.
func (r *repository) EnsureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	db := r.db.WithContext(ctx)
	fresh := &models.Cart{UserID: userID}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(fresh).Error; err != nil {
		return nil, err
	}

	var c models.Cart
	if err := db.Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// InsertItemIfAbsent creates the line unless (cart, product, size) already exists, and
// returns whichever row is stored.
func (r *repository) InsertItemIfAbsent(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "cart_id"},
			{Name: "product_id"},
			{Name: "size"},
		},
		DoNothing: true,
	}).Create(item).Error; err != nil {
		return nil, err
	}

	var stored models.CartItem
	err := db.
		Where("cart_id = ? AND product_id = ? AND size = ?", item.CartID, item.ProductID, item.Size).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repository) UpdateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"quantity":      item.Quantity,
			"mrp_cents":     item.MRPCents,
			"selling_cents": item.SellingCents,
		}).Error
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&models.CartItem{}).Error
}

// SaveCart persists the derived totals and the stored coupon.
func (r *repository) SaveCart(ctx context.Context, c *models.Cart) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"total_mrp_cents":       c.TotalMRPCents,
			"total_selling_cents":   c.TotalSellingCents,
			"coupon_discount_cents": c.CouponDiscountCents,
			"total_amount_cents":    c.TotalAmountCents,
			"total_items":           c.TotalItems,
			"discount_percent":      c.DiscountPercent,
			"coupon_code":           c.CouponCode,
			"coupon_percent":        c.CouponPercent,
		}).Error
}
