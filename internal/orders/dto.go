package orders

import (
	"time"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	"github.com/google/uuid"
)

// AddressInput is the shipping address supplied at checkout.
type AddressInput struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Locality    *string `json:"locality,omitempty" validate:"omitempty,max=120"`
	AddressLine string  `json:"address_line" validate:"required,max=255"`
	City        string  `json:"city" validate:"required,max=80"`
	State       string  `json:"state" validate:"required,max=80"`
	Pincode     string  `json:"pincode" validate:"required,max=12"`
	Mobile      *string `json:"mobile,omitempty" validate:"omitempty,max=20"`
}

func (a AddressInput) toModel(userID uuid.UUID) *models.Address {
	return &models.Address{
		UserID:      &userID,
		Name:        a.Name,
		Locality:    a.Locality,
		AddressLine: a.AddressLine,
		City:        a.City,
		State:       a.State,
		Pincode:     a.Pincode,
		Mobile:      a.Mobile,
	}
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID                uuid.UUID            `json:"id"`
	UserID            uuid.UUID            `json:"user_id"`
	SellerID          uuid.UUID            `json:"seller_id"`
	PaymentOrderID    *uuid.UUID           `json:"payment_order_id,omitempty"`
	ShippingAddressID uuid.UUID            `json:"shipping_address_id"`
	Status            enums.OrderStatus    `json:"status"`
	TotalMRPCents     int64                `json:"total_mrp_cents"`
	TotalSellingCents int64                `json:"total_selling_cents"`
	TotalItems        int                  `json:"total_items"`
	PaymentStatus     enums.PaymentStatus  `json:"payment_status"`
	PaymentMethod     *enums.PaymentMethod `json:"payment_method,omitempty"`
	OrderedAt         time.Time            `json:"ordered_at"`
	DeliveredAt       *time.Time           `json:"delivered_at,omitempty"`
	Items             []OrderItemDTO       `json:"items"`
}

// OrderItemDTO is the API shape of an order line.
type OrderItemDTO struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	ProductID    uuid.UUID `json:"product_id"`
	Size         string    `json:"size"`
	Quantity     int       `json:"quantity"`
	MRPCents     int64     `json:"mrp_cents"`
	SellingCents int64     `json:"selling_cents"`
}

// ToDTO maps an order row to its API shape.
func ToDTO(o models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                o.ID,
		UserID:            o.UserID,
		SellerID:          o.SellerID,
		PaymentOrderID:    o.PaymentOrderID,
		ShippingAddressID: o.ShippingAddressID,
		Status:            o.Status,
		TotalMRPCents:     o.TotalMRPCents,
		TotalSellingCents: o.TotalSellingCents,
		TotalItems:        o.TotalItems,
		PaymentStatus:     o.Payment.Status,
		PaymentMethod:     o.Payment.Method,
		OrderedAt:         o.OrderedAt,
		DeliveredAt:       o.DeliveredAt,
		Items:             make([]OrderItemDTO, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, ItemToDTO(item))
	}
	return dto
}

// ToDTOs maps a slice of orders.
func ToDTOs(list []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(list))
	for _, o := range list {
		out = append(out, ToDTO(o))
	}
	return out
}

// ItemToDTO maps an order line.
func ItemToDTO(item models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ID:           item.ID,
		OrderID:      item.OrderID,
		ProductID:    item.ProductID,
		Size:         item.Size,
		Quantity:     item.Quantity,
		MRPCents:     item.MRPCents,
		SellingCents: item.SellingCents,
	}
}
