package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazar-market/bazar-backend/pkg/enums"
)

// PaymentDetails is the payment value embedded in every order row.
type PaymentDetails struct {
	Status    enums.PaymentStatus  `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Method    *enums.PaymentMethod `gorm:"column:method;type:payment_method"`
	Reference *string              `gorm:"column:reference"`
}

// Order is the per-seller order produced from one checkout.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	SellerID          uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	ShippingAddressID uuid.UUID         `gorm:"column:shipping_address_id;type:uuid;not null"`
	ShippingAddress   *Address          `gorm:"foreignKey:ShippingAddressID"`
	PaymentOrderID    *uuid.UUID        `gorm:"column:payment_order_id;type:uuid;index"`
	Status            enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalMRPCents     int64             `gorm:"column:total_mrp_cents;not null"`
	TotalSellingCents int64             `gorm:"column:total_selling_cents;not null"`
	TotalItems        int               `gorm:"column:total_items;not null"`
	Payment           PaymentDetails    `gorm:"embedded;embeddedPrefix:payment_"`
	OrderedAt         time.Time         `gorm:"column:ordered_at;not null"`
	DeliveredAt       *time.Time        `gorm:"column:delivered_at"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	if o.OrderedAt.IsZero() {
		o.OrderedAt = time.Now().UTC()
	}
	return nil
}
