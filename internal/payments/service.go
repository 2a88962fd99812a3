package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
	"github.com/bazar-market/bazar-backend/pkg/outbox"
	"github.com/bazar-market/bazar-backend/pkg/outbox/payloads"
	"github.com/bazar-market/bazar-backend/pkg/redis"
	"github.com/bazar-market/bazar-backend/pkg/stripe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MetadataOrderID is the session metadata key carrying the payment order id.
const MetadataOrderID = "orderId"

// CashOnDeliveryURL is returned in place of a hosted checkout URL for deferred payment.
const CashOnDeliveryURL = "COD"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type checkoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error)
}

// PaymentLink tells the client where to settle a payment order.
type PaymentLink struct {
	PaymentOrderID uuid.UUID `json:"payment_order_id"`
	URL            string    `json:"payment_link_url"`
	LinkID         string    `json:"payment_link_id"`
}

// Service orchestrates payment orders across the gateway and deferred paths.
type Service interface {
	CreatePaymentOrder(ctx context.Context, tx *gorm.DB, userID uuid.UUID, orders []models.Order, method enums.PaymentMethod) (*models.PaymentOrder, error)
	StartCashOnDelivery(ctx context.Context, tx *gorm.DB, po *models.PaymentOrder) (*PaymentLink, error)
	StartGatewaySession(ctx context.Context, paymentOrderID uuid.UUID) (*PaymentLink, error)
	Get(ctx context.Context, userID, paymentOrderID uuid.UUID) (*models.PaymentOrder, error)
}

// ServiceParams wires the payment service.
type ServiceParams struct {
	Repo         Repository
	Tx           txRunner
	Outbox       outboxPublisher
	Gateway      checkoutGateway
	Correlations redis.SessionCorrelationStore
	Stripe       config.StripeConfig
	Checkout     config.CheckoutConfig
	Logger       *logger.Logger
}

type service struct {
	repo           Repository
	tx             txRunner
	outbox         outboxPublisher
	gateway        checkoutGateway
	correlations   redis.SessionCorrelationStore
	stripeCfg      config.StripeConfig
	correlationTTL time.Duration
	logg           *logger.Logger
}

// NewService builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("checkout gateway required")
	}
	if params.Correlations == nil {
		return nil, fmt.Errorf("session correlation store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.Checkout.CorrelationTTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &service{
		repo:           params.Repo,
		tx:             params.Tx,
		outbox:         params.Outbox,
		gateway:        params.Gateway,
		correlations:   params.Correlations,
		stripeCfg:      params.Stripe,
		correlationTTL: ttl,
		logg:           params.Logger,
	}, nil
}

// CreatePaymentOrder groups the checkout's orders under one pending payment whose amount
// is the sum of their selling totals.
func (s *service) CreatePaymentOrder(ctx context.Context, tx *gorm.DB, userID uuid.UUID, orders []models.Order, method enums.PaymentMethod) (*models.PaymentOrder, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if len(orders) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment order needs at least one order")
	}

	po := &models.PaymentOrder{
		UserID:        userID,
		PaymentMethod: method,
		Status:        enums.PaymentOrderStatusPending,
		PaymentStatus: false,
	}
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		po.AmountCents += o.TotalSellingCents
		ids = append(ids, o.ID)
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, po); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment order")
	}
	if err := repo.AttachOrders(ctx, po.ID, ids); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach orders to payment order")
	}
	for i := range orders {
		orders[i].PaymentOrderID = &po.ID
	}
	po.Orders = orders
	return po, nil
}

// StartCashOnDelivery stamps the deferred method on every child order. Nothing leaves
// the process and the payment stays pending until collected.
func (s *service) StartCashOnDelivery(ctx context.Context, tx *gorm.DB, po *models.PaymentOrder) (*PaymentLink, error) {
	if po == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment order required")
	}
	if err := s.repo.WithTx(tx).UpdateChildPayments(ctx, po.ID, map[string]any{
		"payment_method": enums.PaymentMethodCashOnDelivery,
	}, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stamp cash on delivery")
	}
	return &PaymentLink{
		PaymentOrderID: po.ID,
		URL:            CashOnDeliveryURL,
		LinkID:         fmt.Sprintf("COD-%s", po.ID),
	}, nil
}

// StartGatewaySession opens a hosted checkout for the payment order. It runs after the
// checkout transaction commits; a provider failure marks the payment order failed.
func (s *service) StartGatewaySession(ctx context.Context, paymentOrderID uuid.UUID) (*PaymentLink, error) {
	po, err := s.repo.FindByID(ctx, paymentOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment order")
	}
	if po.Status != enums.PaymentOrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment order is %s", po.Status))
	}

	logCtx := s.logg.WithField(ctx, "payment_order_id", po.ID.String())
	sess, err := s.gateway.CreateCheckoutSession(ctx, stripe.CheckoutSessionRequest{
		Mode:        stripe.ModePayment,
		ProductName: fmt.Sprintf("Order #%s", po.ID),
		AmountCents: po.AmountCents,
		Currency:    s.stripeCfg.NormalizedCurrency(),
		SuccessURL:  s.stripeCfg.SuccessURL,
		CancelURL:   s.stripeCfg.CancelURL,
		Metadata:    map[string]string{MetadataOrderID: po.ID.String()},
	})
	if err != nil {
		return nil, s.failSession(logCtx, po, err)
	}

	if err := s.repo.UpdateFields(ctx, po.ID, map[string]any{"payment_link_id": sess.ID}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment link")
	}
	if err := s.correlations.SaveCheckoutSession(ctx, sess.ID, po.ID.String(), s.correlationTTL); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "session_id", sess.ID), fmt.Sprintf("checkout session correlation not stored: %v", err))
	}

	s.logg.Info(s.logg.WithField(logCtx, "session_id", sess.ID), "checkout session created")
	return &PaymentLink{PaymentOrderID: po.ID, URL: sess.URL, LinkID: sess.ID}, nil
}

func (s *service) failSession(ctx context.Context, po *models.PaymentOrder, cause error) error {
	var providerCode, providerMessage string
	var gwErr *stripe.GatewayError
	if errors.As(cause, &gwErr) {
		providerCode, providerMessage = gwErr.Code, gwErr.Message
	} else {
		providerMessage = cause.Error()
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateFields(ctx, po.ID, map[string]any{
			"status":         enums.PaymentOrderStatusFailed,
			"payment_status": false,
		}); err != nil {
			return err
		}
		if err := repo.UpdateChildPayments(ctx, po.ID, map[string]any{
			"payment_status": enums.PaymentStatusFailed,
		}, nil); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSessionFailed,
			AggregateType: enums.AggregatePaymentOrder,
			AggregateID:   po.ID,
			Actor:         &outbox.ActorRef{UserID: po.UserID, Role: enums.RoleCustomer.String()},
			Data: payloads.PaymentSessionFailedEvent{
				PaymentOrderID: po.ID,
				ProviderCode:   providerCode,
				Message:        providerMessage,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "failed to mark payment order failed", err)
	}
	s.logg.Warn(ctx, fmt.Sprintf("checkout session creation failed: %v", cause))

	return pkgerrors.Wrap(pkgerrors.CodeGateway, cause, "payment provider rejected checkout session").
		WithDetails(map[string]any{
			"payment_order_id": po.ID,
			"provider_code":    providerCode,
			"provider_message": providerMessage,
		})
}

// Get returns the caller's payment order with its orders.
func (s *service) Get(ctx context.Context, userID, paymentOrderID uuid.UUID) (*models.PaymentOrder, error) {
	po, err := s.repo.FindByID(ctx, paymentOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment order")
	}
	if po.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment order belongs to another user")
	}
	return po, nil
}
