package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the catalog row consumed for price snapshots and quota counting.
type Product struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID     uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Title        string    `gorm:"column:title;not null"`
	Description  *string   `gorm:"column:description"`
	MRPCents     int64     `gorm:"column:mrp_cents;not null"`
	SellingCents int64     `gorm:"column:selling_cents;not null"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
