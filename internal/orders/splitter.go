package orders

import (
	"bytes"
	"context"
	"sort"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateOrders persists the shipping address and splits the cart lines into one pending
// order per seller. Orders come back sorted by seller id.
func (s *service) CreateOrders(ctx context.Context, tx *gorm.DB, userID uuid.UUID, shipping AddressInput, items []models.CartItem) ([]models.Order, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	repo := s.repo.WithTx(tx)

	addr := shipping.toModel(userID)
	if err := repo.CreateAddress(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save shipping address")
	}

	groups := groupBySeller(items)
	orders := make([]models.Order, 0, len(groups))
	for _, g := range groups {
		order := buildOrder(userID, addr.ID, g)
		if err := repo.CreateOrder(ctx, &order); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		orders = append(orders, order)
	}
	return orders, nil
}

type sellerGroup struct {
	sellerID uuid.UUID
	items    []models.CartItem
}

func groupBySeller(items []models.CartItem) []sellerGroup {
	index := map[uuid.UUID]int{}
	var groups []sellerGroup
	for _, item := range items {
		i, ok := index[item.SellerID]
		if !ok {
			i = len(groups)
			index[item.SellerID] = i
			groups = append(groups, sellerGroup{sellerID: item.SellerID})
		}
		groups[i].items = append(groups[i].items, item)
	}
	sort.Slice(groups, func(a, b int) bool {
		return bytes.Compare(groups[a].sellerID[:], groups[b].sellerID[:]) < 0
	})
	return groups
}

func buildOrder(userID, addressID uuid.UUID, g sellerGroup) models.Order {
	order := models.Order{
		UserID:            userID,
		SellerID:          g.sellerID,
		ShippingAddressID: addressID,
		Status:            enums.OrderStatusPending,
		Payment:           models.PaymentDetails{Status: enums.PaymentStatusPending},
		Items:             make([]models.OrderItem, 0, len(g.items)),
	}
	for _, ci := range g.items {
		order.TotalMRPCents += ci.MRPCents
		order.TotalSellingCents += ci.SellingCents
		order.TotalItems += ci.Quantity
		order.Items = append(order.Items, models.OrderItem{
			ProductID:    ci.ProductID,
			UserID:       userID,
			Size:         ci.Size,
			Quantity:     ci.Quantity,
			MRPCents:     ci.MRPCents,
			SellingCents: ci.SellingCents,
		})
	}
	return order
}
