package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon is a percentage discount valid strictly between ValidFrom and ValidUntil.
type Coupon struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Code              string          `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	DiscountPercent   decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	ValidFrom         time.Time       `gorm:"column:valid_from;type:date;not null"`
	ValidUntil        time.Time       `gorm:"column:valid_until;type:date;not null"`
	MinimumOrderCents int64           `gorm:"column:minimum_order_cents;not null;default:0"`
	IsActive          bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CouponUsage records that a user consumed a coupon. Rows are never deleted.
type CouponUsage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_coupon_usages_user_coupon,priority:1"`
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:ux_coupon_usages_user_coupon,priority:2"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (u *CouponUsage) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
