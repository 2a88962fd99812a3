package checkout

import (
	"context"
	"fmt"

	"github.com/bazar-market/bazar-backend/internal/orders"
	"github.com/bazar-market/bazar-backend/internal/payments"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
	"github.com/bazar-market/bazar-backend/pkg/outbox"
	"github.com/bazar-market/bazar-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartSnapshotter interface {
	SnapshotTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, []models.CartItem, error)
}

type orderSplitter interface {
	CreateOrders(ctx context.Context, tx *gorm.DB, userID uuid.UUID, shipping orders.AddressInput, items []models.CartItem) ([]models.Order, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type checkoutRecorder interface {
	IncCheckout(method, outcome string)
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error)
}

// Input carries the chosen payment method and the shipping address for every order.
type Input struct {
	Method   enums.PaymentMethod
	Shipping orders.AddressInput
}

// Result is what the buyer needs to settle the checkout.
type Result struct {
	PaymentOrderID uuid.UUID         `json:"payment_order_id"`
	PaymentMethod  string            `json:"payment_method"`
	AmountCents    int64             `json:"amount_cents"`
	URL            string            `json:"payment_link_url"`
	LinkID         string            `json:"payment_link_id"`
	Orders         []orders.OrderDTO `json:"orders"`
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Tx       txRunner
	Cart     cartSnapshotter
	Orders   orderSplitter
	Payments payments.Service
	Outbox   outboxPublisher
	Metrics  checkoutRecorder
	Logger   *logger.Logger
}

type service struct {
	tx       txRunner
	cart     cartSnapshotter
	orders   orderSplitter
	payments payments.Service
	outbox   outboxPublisher
	metrics  checkoutRecorder
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order splitter required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       params.Tx,
		cart:     params.Cart,
		orders:   params.Orders,
		payments: params.Payments,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Execute converts the buyer's cart into one order per seller under a single payment order.
// Orders, the payment order and the checkout event commit together; the gateway session is
// opened only after that commit.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var (
		po      *models.PaymentOrder
		created []models.Order
		link    *payments.PaymentLink
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, items, err := s.cart.SnapshotTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		created, err = s.orders.CreateOrders(ctx, tx, userID, input.Shipping, items)
		if err != nil {
			return err
		}

		po, err = s.payments.CreatePaymentOrder(ctx, tx, userID, created, input.Method)
		if err != nil {
			return err
		}

		if input.Method.IsDeferred() {
			link, err = s.payments.StartCashOnDelivery(ctx, tx, po)
			if err != nil {
				return err
			}
		}

		return s.emitConverted(ctx, tx, userID, po, created)
	})
	if err != nil {
		s.record(input.Method, "rejected")
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_order_id": po.ID.String(),
		"user_id":          userID.String(),
		"order_count":      len(created),
	})

	if !input.Method.IsDeferred() {
		link, err = s.payments.StartGatewaySession(ctx, po.ID)
		if err != nil {
			s.record(input.Method, "gateway_error")
			return nil, err
		}
	}

	s.record(input.Method, "created")
	s.logg.Info(logCtx, "checkout converted")

	return &Result{
		PaymentOrderID: po.ID,
		PaymentMethod:  input.Method.String(),
		AmountCents:    po.AmountCents,
		URL:            link.URL,
		LinkID:         link.LinkID,
		Orders:         orders.ToDTOs(created),
	}, nil
}

func (s *service) emitConverted(ctx context.Context, tx *gorm.DB, userID uuid.UUID, po *models.PaymentOrder, created []models.Order) error {
	ids := make([]uuid.UUID, 0, len(created))
	for _, o := range created {
		ids = append(ids, o.ID)
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCheckoutConverted,
		AggregateType: enums.AggregatePaymentOrder,
		AggregateID:   po.ID,
		Actor:         &outbox.ActorRef{UserID: userID, Role: enums.RoleCustomer.String()},
		Data: payloads.CheckoutConvertedEvent{
			PaymentOrderID: po.ID,
			UserID:         userID,
			OrderIDs:       ids,
			PaymentMethod:  po.PaymentMethod,
			AmountCents:    po.AmountCents,
		},
		Version: 1,
	})
}

func (s *service) record(method enums.PaymentMethod, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncCheckout(method.String(), outcome)
}
