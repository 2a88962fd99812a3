package payments

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/api/controllers/endpoint"
	internalorders "github.com/bazar-market/bazar-backend/internal/orders"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

// PaymentLookup resolves a payment order owned by the caller.
type PaymentLookup interface {
	Get(ctx context.Context, userID, paymentOrderID uuid.UUID) (*models.PaymentOrder, error)
}

type paymentOrderResponse struct {
	ID            uuid.UUID                 `json:"id"`
	AmountCents   int64                     `json:"amount_cents"`
	PaymentMethod enums.PaymentMethod       `json:"payment_method"`
	Status        enums.PaymentOrderStatus  `json:"status"`
	Paid          bool                      `json:"paid"`
	PaymentLinkID *string                   `json:"payment_link_id,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	Orders        []internalorders.OrderDTO `json:"orders"`
}

// Detail reports a payment order so the buyer can poll after the gateway redirect.
func Detail(svc PaymentLookup, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, "payment service")
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		userID, id, err := endpoint.UserAndPathID(r, "paymentOrderId")
		if err != nil {
			return nil, err
		}
		po, err := svc.Get(r.Context(), userID, id)
		if err != nil {
			return nil, err
		}
		return paymentOrderResponse{
			ID:            po.ID,
			AmountCents:   po.AmountCents,
			PaymentMethod: po.PaymentMethod,
			Status:        po.Status,
			Paid:          po.PaymentStatus,
			PaymentLinkID: po.PaymentLinkID,
			CreatedAt:     po.CreatedAt,
			Orders:        internalorders.ToDTOs(po.Orders),
		}, nil
	})
}
