package notifications

import (
	"context"
	"fmt"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/logger"
	"github.com/google/uuid"
)

// Notifier hands shipment details to the delivery partner.
type Notifier interface {
	SendOrderToDelivery(ctx context.Context, notice DeliveryNotice) error
}

// DeliveryNotice is the order summary a delivery partner needs to collect and drop off
// a parcel.
type DeliveryNotice struct {
	OrderID         uuid.UUID
	SellerName      string
	SellerMobile    string
	PickupAddress   string
	CustomerName    string
	ShippingAddress string
	TotalItems      int
	AmountCents     int64
	PaymentMethod   string
	Lines           []DeliveryLine
}

// DeliveryLine is one parcel line.
type DeliveryLine struct {
	ProductID uuid.UUID
	Size      string
	Quantity  int
}

// New returns the SES notifier when SES is configured and a log-only notifier otherwise.
func New(ctx context.Context, cfg config.NotificationConfig, logg *logger.Logger) (Notifier, error) {
	if !cfg.SESEnabled() {
		if logg != nil {
			logg.Warn(ctx, "ses not configured; delivery notices will only be logged")
		}
		return NewLogNotifier(logg), nil
	}
	n, err := NewSESNotifier(ctx, cfg, logg)
	if err != nil {
		return nil, fmt.Errorf("init ses notifier: %w", err)
	}
	return n, nil
}

// LogNotifier records notices in the structured log only.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) SendOrderToDelivery(ctx context.Context, notice DeliveryNotice) error {
	if n.logg == nil {
		return nil
	}
	ctx = n.logg.WithFields(ctx, map[string]any{
		"order_id":    notice.OrderID.String(),
		"total_items": notice.TotalItems,
		"pickup":      notice.PickupAddress,
	})
	n.logg.Info(ctx, "delivery notice (log only)")
	return nil
}
