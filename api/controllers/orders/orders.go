package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/api/controllers/endpoint"
	"github.com/bazar-market/bazar-backend/internal/checkout"
	internalorders "github.com/bazar-market/bazar-backend/internal/orders"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

// CheckoutService converts the caller's cart into orders and a payment order.
type CheckoutService interface {
	Execute(ctx context.Context, userID uuid.UUID, input checkout.Input) (*checkout.Result, error)
}

// BuyerOrderService is the buyer-facing slice of internal/orders.
type BuyerOrderService interface {
	FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	FindItem(ctx context.Context, userID, itemID uuid.UUID) (*models.OrderItem, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
}

const unavailable = "orders service"

func paymentMethodParam(r *http.Request) (enums.PaymentMethod, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("paymentMethod"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "paymentMethod is required")
	}
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentMethod")
	}
	return method, nil
}

// Create runs checkout with ?paymentMethod and the shipping address in the body.
func Create(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, "checkout service")
	}
	return endpoint.JSON(logg, http.StatusCreated, func(r *http.Request) (any, error) {
		userID, err := endpoint.UserID(r)
		if err != nil {
			return nil, err
		}
		method, err := paymentMethodParam(r)
		if err != nil {
			return nil, err
		}
		shipping, err := endpoint.Body[internalorders.AddressInput](r)
		if err != nil {
			return nil, err
		}
		return svc.Execute(r.Context(), userID, checkout.Input{Method: method, Shipping: shipping})
	})
}

// List returns the caller's order history, newest first.
func List(svc BuyerOrderService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		userID, err := endpoint.UserID(r)
		if err != nil {
			return nil, err
		}
		list, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return internalorders.ToDTOs(list), nil
	})
}

// buyerOrder adapts a per-order buyer operation.
func buyerOrder(logg *logger.Logger, op func(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)) http.HandlerFunc {
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		userID, orderID, err := endpoint.UserAndPathID(r, "orderId")
		if err != nil {
			return nil, err
		}
		order, err := op(r.Context(), userID, orderID)
		if err != nil {
			return nil, err
		}
		return internalorders.ToDTO(*order), nil
	})
}

func Detail(svc BuyerOrderService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return buyerOrder(logg, svc.FindForUser)
}

// Cancel is repeatable: a second call returns the already cancelled order.
func Cancel(svc BuyerOrderService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return buyerOrder(logg, svc.Cancel)
}

// ItemDetail returns one line of an order the caller owns.
func ItemDetail(svc BuyerOrderService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		userID, itemID, err := endpoint.UserAndPathID(r, "itemId")
		if err != nil {
			return nil, err
		}
		item, err := svc.FindItem(r.Context(), userID, itemID)
		if err != nil {
			return nil, err
		}
		return internalorders.ItemToDTO(*item), nil
	})
}
