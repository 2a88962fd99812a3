package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SellerReport holds monotonic per-seller counters.
type SellerReport struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID           uuid.UUID `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:ux_seller_reports_seller"`
	TotalOrders        int64     `gorm:"column:total_orders;not null;default:0"`
	TotalEarningsCents int64     `gorm:"column:total_earnings_cents;not null;default:0"`
	TotalSales         int64     `gorm:"column:total_sales;not null;default:0"`
	CancelledOrders    int64     `gorm:"column:cancelled_orders;not null;default:0"`
	TotalRefundsCents  int64     `gorm:"column:total_refunds_cents;not null;default:0"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *SellerReport) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
