package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction is the audit row written once per paid order.
type Transaction struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_transactions_order"`
	SellerID       uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	CustomerID     uuid.UUID `gorm:"column:customer_id;type:uuid;not null"`
	PaymentOrderID uuid.UUID `gorm:"column:payment_order_id;type:uuid;not null"`
	AmountCents    int64     `gorm:"column:amount_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
