package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem snapshots unit prices at add time; line prices are quantity times the snapshot.
type CartItem struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID           uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_product_size,priority:1"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_product_size,priority:2"`
	Size             string    `gorm:"column:size;not null;default:'';uniqueIndex:ux_cart_items_cart_product_size,priority:3"`
	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	SellerID         uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	Quantity         int       `gorm:"column:quantity;not null"`
	UnitMRPCents     int64     `gorm:"column:unit_mrp_cents;not null"`
	UnitSellingCents int64     `gorm:"column:unit_selling_cents;not null"`
	MRPCents         int64     `gorm:"column:mrp_cents;not null"`
	SellingCents     int64     `gorm:"column:selling_cents;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// Reprice recomputes line prices from the stored unit snapshots.
func (i *CartItem) Reprice() {
	i.MRPCents = int64(i.Quantity) * i.UnitMRPCents
	i.SellingCents = int64(i.Quantity) * i.UnitSellingCents
}
