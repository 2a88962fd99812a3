package payloads

import (
	"time"

	"github.com/bazar-market/bazar-backend/pkg/enums"
	"github.com/google/uuid"
)

// CheckoutConvertedEvent signals a cart split into per-seller orders under one payment order.
type CheckoutConvertedEvent struct {
	PaymentOrderID uuid.UUID           `json:"payment_order_id"`
	UserID         uuid.UUID           `json:"user_id"`
	OrderIDs       []uuid.UUID         `json:"order_ids"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	AmountCents    int64               `json:"amount_cents"`
}

// PaymentSessionFailedEvent is emitted when the provider refused to open a checkout session.
type PaymentSessionFailedEvent struct {
	PaymentOrderID uuid.UUID `json:"payment_order_id"`
	ProviderCode   string    `json:"provider_code,omitempty"`
	Message        string    `json:"message"`
}

// PaymentOrderPaidEvent is emitted once per payment order when the provider confirms payment.
type PaymentOrderPaidEvent struct {
	PaymentOrderID uuid.UUID   `json:"payment_order_id"`
	UserID         uuid.UUID   `json:"user_id"`
	PaymentID      string      `json:"payment_id,omitempty"`
	OrderIDs       []uuid.UUID `json:"order_ids"`
	AmountCents    int64       `json:"amount_cents"`
}

// OrderStatusChangedEvent is emitted when a seller moves an order along its lifecycle.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	SellerID uuid.UUID         `json:"seller_id"`
	UserID   uuid.UUID         `json:"user_id"`
	From     enums.OrderStatus `json:"from"`
	To       enums.OrderStatus `json:"to"`
}

// OrderCanceledEvent is emitted whenever a buyer cancels an order before shipment.
type OrderCanceledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	RefundCents int64     `json:"refund_cents"`
}

// OrderSentToDeliveryEvent is emitted when a seller hands an order to the delivery partner.
type OrderSentToDeliveryEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	SellerID uuid.UUID `json:"seller_id"`
	Notified bool      `json:"notified"`
}

// SubscriptionChangedEvent is emitted whenever a seller's plan is replaced.
type SubscriptionChangedEvent struct {
	SellerID       uuid.UUID      `json:"seller_id"`
	SubscriptionID uuid.UUID      `json:"subscription_id"`
	PlanType       enums.PlanType `json:"plan_type"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
}

// SubscriptionDowngradedEvent is emitted by the expiry sweeper.
type SubscriptionDowngradedEvent struct {
	SellerID       uuid.UUID      `json:"seller_id"`
	SubscriptionID uuid.UUID      `json:"subscription_id"`
	FromPlan       enums.PlanType `json:"from_plan"`
	ExpiredOn      time.Time      `json:"expired_on"`
}
