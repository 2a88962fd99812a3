package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazar-market/bazar-backend/pkg/enums"
)

// PaymentOrder groups the orders of one checkout under a single payment.
type PaymentOrder struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	AmountCents   int64                    `gorm:"column:amount_cents;not null"`
	PaymentMethod enums.PaymentMethod      `gorm:"column:payment_method;type:payment_method;not null"`
	Status        enums.PaymentOrderStatus `gorm:"column:status;type:payment_order_status;not null;default:'pending'"`
	PaymentStatus bool                     `gorm:"column:payment_status;not null;default:false"`
	PaymentLinkID *string                  `gorm:"column:payment_link_id;index"`
	PaymentID     *string                  `gorm:"column:payment_id;index"`
	Orders        []Order                  `gorm:"foreignKey:PaymentOrderID"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
