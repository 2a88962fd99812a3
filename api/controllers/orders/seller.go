package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/api/controllers/endpoint"
	internalorders "github.com/bazar-market/bazar-backend/internal/orders"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

// SellerOrderService is the seller-facing slice of internal/orders.
type SellerOrderService interface {
	ListForSeller(ctx context.Context, sellerID uuid.UUID, status *enums.OrderStatus) ([]models.Order, error)
	UpdateStatus(ctx context.Context, sellerID, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, sellerID, orderID uuid.UUID) error
	SendToDelivery(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error)
}

func parseStatus(raw, what string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+what)
	}
	return status, nil
}

// SellerList returns the seller's orders, optionally filtered by ?status.
func SellerList(svc SellerOrderService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		sellerID, err := endpoint.SellerID(r)
		if err != nil {
			return nil, err
		}
		var filter *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := parseStatus(raw, "status filter")
			if err != nil {
				return nil, err
			}
			filter = &status
		}
		list, err := svc.ListForSeller(r.Context(), sellerID, filter)
		if err != nil {
			return nil, err
		}
		return internalorders.ToDTOs(list), nil
	})
}

// SellerUpdateStatus moves an order to the {status} path segment.
func SellerUpdateStatus(svc SellerOrderService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return sellerOrder(logg, func(r *http.Request, sellerID, orderID uuid.UUID) (*models.Order, error) {
		status, err := parseStatus(chi.URLParam(r, "status"), "status")
		if err != nil {
			return nil, err
		}
		return svc.UpdateStatus(r.Context(), sellerID, orderID, status)
	})
}

// SendToDelivery marks the order shipped and emails the delivery partner.
func SendToDelivery(svc SellerOrderService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return sellerOrder(logg, func(r *http.Request, sellerID, orderID uuid.UUID) (*models.Order, error) {
		return svc.SendToDelivery(r.Context(), sellerID, orderID)
	})
}

// SellerDelete removes an order together with its transaction rows.
func SellerDelete(svc SellerOrderService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.JSON(logg, http.StatusNoContent, func(r *http.Request) (any, error) {
		sellerID, orderID, err := endpoint.SellerAndPathID(r, "orderId")
		if err != nil {
			return nil, err
		}
		return nil, svc.Delete(r.Context(), sellerID, orderID)
	})
}

func sellerOrder(logg *logger.Logger, op func(r *http.Request, sellerID, orderID uuid.UUID) (*models.Order, error)) http.HandlerFunc {
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		sellerID, orderID, err := endpoint.SellerAndPathID(r, "orderId")
		if err != nil {
			return nil, err
		}
		order, err := op(r, sellerID, orderID)
		if err != nil {
			return nil, err
		}
		return internalorders.ToDTO(*order), nil
	})
}
