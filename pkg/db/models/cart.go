package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is the single per-user cart. Total fields are derived and rewritten on every read.
type Cart struct {
	ID                  uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID              uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_carts_user"`
	TotalMRPCents       int64            `gorm:"column:total_mrp_cents;not null;default:0"`
	TotalSellingCents   int64            `gorm:"column:total_selling_cents;not null;default:0"`
	CouponDiscountCents int64            `gorm:"column:coupon_discount_cents;not null;default:0"`
	TotalAmountCents    int64            `gorm:"column:total_amount_cents;not null;default:0"`
	TotalItems          int              `gorm:"column:total_items;not null;default:0"`
	DiscountPercent     int              `gorm:"column:discount_percent;not null;default:0"`
	CouponCode          *string          `gorm:"column:coupon_code"`
	CouponPercent       *decimal.Decimal `gorm:"column:coupon_percent;type:numeric(5,2)"`
	Items               []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
