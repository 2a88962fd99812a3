package cart

import (
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals are the derived cart fields. They are a pure function of the items and the
// stored coupon percent.
type Totals struct {
	TotalMRPCents       int64
	TotalSellingCents   int64
	CouponDiscountCents int64
	TotalAmountCents    int64
	TotalItems          int
	DiscountPercent     int
}

// Recompute derives cart totals from the line snapshots.
func Recompute(items []models.CartItem, couponPercent *decimal.Decimal) Totals {
	var t Totals
	for _, item := range items {
		t.TotalMRPCents += item.MRPCents
		t.TotalSellingCents += item.SellingCents
		t.TotalItems += item.Quantity
	}
	t.DiscountPercent = DiscountPercent(t.TotalMRPCents, t.TotalSellingCents)
	t.CouponDiscountCents = CouponDiscount(t.TotalSellingCents, couponPercent)
	t.TotalAmountCents = t.TotalSellingCents - t.CouponDiscountCents
	return t
}

// DiscountPercent is floor((mrp - selling) / mrp * 100), or 0 when mrp is not positive.
func DiscountPercent(mrpCents, sellingCents int64) int {
	if mrpCents <= 0 || sellingCents >= mrpCents {
		return 0
	}
	return int((mrpCents - sellingCents) * 100 / mrpCents)
}

// CouponDiscount returns amount*percent/100 rounded half away from zero to the cent.
func CouponDiscount(amountCents int64, percent *decimal.Decimal) int64 {
	if percent == nil || percent.Sign() <= 0 || amountCents <= 0 {
		return 0
	}
	return decimal.NewFromInt(amountCents).Mul(*percent).Div(hundred).Round(0).IntPart()
}

func (t Totals) applyTo(c *models.Cart) {
	c.TotalMRPCents = t.TotalMRPCents
	c.TotalSellingCents = t.TotalSellingCents
	c.CouponDiscountCents = t.CouponDiscountCents
	c.TotalAmountCents = t.TotalAmountCents
	c.TotalItems = t.TotalItems
	c.DiscountPercent = t.DiscountPercent
}
