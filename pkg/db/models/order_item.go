package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderItem is an immutable snapshot of a cart item at checkout.
type OrderItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Size         string    `gorm:"column:size;not null;default:''"`
	Quantity     int       `gorm:"column:quantity;not null"`
	MRPCents     int64     `gorm:"column:mrp_cents;not null"`
	SellingCents int64     `gorm:"column:selling_cents;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
