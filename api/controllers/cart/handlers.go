package cart

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/api/controllers/endpoint"
	"github.com/bazar-market/bazar-backend/api/validators"
	cartsvc "github.com/bazar-market/bazar-backend/internal/cart"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

// CartService is the slice of the cart aggregate the HTTP layer drives.
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*cartsvc.View, error)
	AddItem(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.ItemView, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*cartsvc.ItemView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size" validate:"required,max=20"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=100"`
}

const unavailable = "cart service"

// CartFetch returns the caller's cart, creating an empty one on first access.
func CartFetch(svc CartService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		userID, err := endpoint.UserID(r)
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), userID)
	})
}

// CartAddItem adds a line, or returns the existing one for the same product and size.
func CartAddItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		userID, err := endpoint.UserID(r)
		if err != nil {
			return nil, err
		}
		req, err := endpoint.Body[addItemRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), userID, cartsvc.AddItemInput{
			ProductID: req.ProductID,
			Size:      validators.SanitizeString(req.Size, 20),
			Quantity:  req.Quantity,
		})
	})
}

func CartUpdateItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		userID, itemID, err := endpoint.UserAndPathID(r, "itemId")
		if err != nil {
			return nil, err
		}
		req, err := endpoint.Body[updateItemRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.UpdateItem(r.Context(), userID, itemID, req.Quantity)
	})
}

func CartRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		userID, itemID, err := endpoint.UserAndPathID(r, "itemId")
		if err != nil {
			return nil, err
		}
		if err := svc.RemoveItem(r.Context(), userID, itemID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "removed"}, nil
	})
}
