package cart

import (
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// View is the cart as returned to the owner.
type View struct {
	ID                  uuid.UUID        `json:"id"`
	UserID              uuid.UUID        `json:"user_id"`
	Items               []ItemView       `json:"items"`
	TotalMRPCents       int64            `json:"total_mrp_cents"`
	TotalSellingCents   int64            `json:"total_selling_cents"`
	CouponDiscountCents int64            `json:"coupon_discount_cents"`
	TotalAmountCents    int64            `json:"total_amount_cents"`
	TotalItems          int              `json:"total_items"`
	DiscountPercent     int              `json:"discount_percent"`
	CouponCode          *string          `json:"coupon_code,omitempty"`
	CouponPercent       *decimal.Decimal `json:"coupon_percent,omitempty"`
}

// ItemView is one cart line.
type ItemView struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"product_id"`
	SellerID         uuid.UUID `json:"seller_id"`
	Size             string    `json:"size"`
	Quantity         int       `json:"quantity"`
	UnitMRPCents     int64     `json:"unit_mrp_cents"`
	UnitSellingCents int64     `json:"unit_selling_cents"`
	MRPCents         int64     `json:"mrp_cents"`
	SellingCents     int64     `json:"selling_cents"`
}

func newView(c *models.Cart, items []models.CartItem) *View {
	v := &View{
		ID:                  c.ID,
		UserID:              c.UserID,
		Items:               make([]ItemView, 0, len(items)),
		TotalMRPCents:       c.TotalMRPCents,
		TotalSellingCents:   c.TotalSellingCents,
		CouponDiscountCents: c.CouponDiscountCents,
		TotalAmountCents:    c.TotalAmountCents,
		TotalItems:          c.TotalItems,
		DiscountPercent:     c.DiscountPercent,
		CouponCode:          c.CouponCode,
		CouponPercent:       c.CouponPercent,
	}
	for _, item := range items {
		v.Items = append(v.Items, newItemView(item))
	}
	return v
}

func newItemView(item models.CartItem) ItemView {
	return ItemView{
		ID:               item.ID,
		ProductID:        item.ProductID,
		SellerID:         item.SellerID,
		Size:             item.Size,
		Quantity:         item.Quantity,
		UnitMRPCents:     item.UnitMRPCents,
		UnitSellingCents: item.UnitSellingCents,
		MRPCents:         item.MRPCents,
		SellingCents:     item.SellingCents,
	}
}
