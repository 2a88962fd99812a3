package payments

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/db/sqlitetest"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
	"github.com/bazar-market/bazar-backend/pkg/outbox"
	"github.com/bazar-market/bazar-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubGateway struct {
	requests []stripe.CheckoutSessionRequest
	session  *stripe.CheckoutSession
	err      error
}

func (s *stubGateway) CreateCheckoutSession(_ context.Context, req stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

type stubCorrelations struct {
	saved map[string]string
	ttl   time.Duration
	err   error
}

func (s *stubCorrelations) SaveCheckoutSession(_ context.Context, sessionID, paymentOrderID string, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = map[string]string{}
	}
	s.saved[sessionID] = paymentOrderID
	s.ttl = ttl
	return nil
}

func (s *stubCorrelations) LookupCheckoutSession(_ context.Context, sessionID string) (string, error) {
	return s.saved[sessionID], nil
}

type fixture struct {
	svc          Service
	conn         *gorm.DB
	client       txRunner
	gateway      *stubGateway
	correlations *stubCorrelations
	buyer        *models.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := sqlitetest.Client(t)
	conn := client.DB()
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	gateway := &stubGateway{session: &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}}
	correlations := &stubCorrelations{}

	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(conn),
		Tx:           client,
		Outbox:       outbox.NewService(outbox.NewRepository(conn), logg),
		Gateway:      gateway,
		Correlations: correlations,
		Stripe:       config.StripeConfig{Currency: "USD", SuccessURL: "https://shop/ok", CancelURL: "https://shop/cancel"},
		Checkout:     config.CheckoutConfig{CorrelationTTL: time.Hour},
		Logger:       logg,
	})
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, client: client, gateway: gateway, correlations: correlations, buyer: sqlitetest.User(t, conn)}
}

func (f fixture) seedOrders(t *testing.T, totals ...int64) []models.Order {
	t.Helper()
	addr := sqlitetest.Address(t, f.conn, &f.buyer.ID)
	out := make([]models.Order, 0, len(totals))
	for _, total := range totals {
		seller := sqlitetest.Seller(t, f.conn)
		o := models.Order{
			UserID:            f.buyer.ID,
			SellerID:          seller.ID,
			ShippingAddressID: addr.ID,
			Status:            enums.OrderStatusPending,
			TotalMRPCents:     total,
			TotalSellingCents: total,
			TotalItems:        1,
			Payment:           models.PaymentDetails{Status: enums.PaymentStatusPending},
		}
		require.NoError(t, f.conn.Create(&o).Error)
		out = append(out, o)
	}
	return out
}

func (f fixture) createPaymentOrder(t *testing.T, method enums.PaymentMethod, orders []models.Order) *models.PaymentOrder {
	t.Helper()
	var po *models.PaymentOrder
	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		po, err = f.svc.CreatePaymentOrder(context.Background(), tx, f.buyer.ID, orders, method)
		return err
	})
	require.NoError(t, err)
	return po
}

func TestCreatePaymentOrderSumsSellingTotalsAndAttachesOrders(t *testing.T) {
	f := newFixture(t)
	orders := f.seedOrders(t, 1500, 2500)

	po := f.createPaymentOrder(t, enums.PaymentMethodGateway, orders)
	require.Equal(t, int64(4000), po.AmountCents)
	require.Equal(t, enums.PaymentOrderStatusPending, po.Status)
	require.False(t, po.PaymentStatus)

	var attached int64
	require.NoError(t, f.conn.Model(&models.Order{}).Where("payment_order_id = ?", po.ID).Count(&attached).Error)
	require.Equal(t, int64(2), attached)
}

func TestCreatePaymentOrderRejectsEmptyAndInvalidMethod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePaymentOrder(ctx, f.conn, f.buyer.ID, nil, enums.PaymentMethodGateway)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.CreatePaymentOrder(ctx, f.conn, f.buyer.ID, f.seedOrders(t, 100), enums.PaymentMethod("barter"))
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestStartGatewaySessionStoresLinkAndCorrelation(t *testing.T) {
	f := newFixture(t)
	po := f.createPaymentOrder(t, enums.PaymentMethodGateway, f.seedOrders(t, 1999))

	link, err := f.svc.StartGatewaySession(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, "https://checkout.example/cs_test_1", link.URL)
	require.Equal(t, "cs_test_1", link.LinkID)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	require.Equal(t, stripe.ModePayment, req.Mode)
	require.Equal(t, int64(1999), req.AmountCents)
	require.Equal(t, "usd", req.Currency)
	require.Equal(t, "Order #"+po.ID.String(), req.ProductName)
	require.Equal(t, po.ID.String(), req.Metadata[MetadataOrderID])

	require.Equal(t, po.ID.String(), f.correlations.saved["cs_test_1"])
	require.Equal(t, time.Hour, f.correlations.ttl)

	var stored models.PaymentOrder
	require.NoError(t, f.conn.First(&stored, "id = ?", po.ID).Error)
	require.NotNil(t, stored.PaymentLinkID)
	require.Equal(t, "cs_test_1", *stored.PaymentLinkID)
}

func TestStartGatewaySessionToleratesCorrelationFailure(t *testing.T) {
	f := newFixture(t)
	f.correlations.err = errors.New("redis down")
	po := f.createPaymentOrder(t, enums.PaymentMethodGateway, f.seedOrders(t, 500))

	link, err := f.svc.StartGatewaySession(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", link.LinkID)
}

func TestStartGatewaySessionFailureMarksPaymentFailed(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = &stripe.GatewayError{Code: "card_declined", Message: "declined"}
	orders := f.seedOrders(t, 700, 300)
	po := f.createPaymentOrder(t, enums.PaymentMethodGateway, orders)

	_, err := f.svc.StartGatewaySession(context.Background(), po.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.Equal(t, pkgerrors.CodeGateway, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, "card_declined", details["provider_code"])

	var stored models.PaymentOrder
	require.NoError(t, f.conn.First(&stored, "id = ?", po.ID).Error)
	require.Equal(t, enums.PaymentOrderStatusFailed, stored.Status)

	var children []models.Order
	require.NoError(t, f.conn.Where("payment_order_id = ?", po.ID).Find(&children).Error)
	for _, o := range children {
		require.Equal(t, enums.PaymentStatusFailed, o.Payment.Status)
	}

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", enums.EventPaymentSessionFailed).Find(&events).Error)
	require.Len(t, events, 1)
}

func TestStartGatewaySessionRejectsSettledOrder(t *testing.T) {
	f := newFixture(t)
	po := f.createPaymentOrder(t, enums.PaymentMethodGateway, f.seedOrders(t, 100))
	require.NoError(t, f.conn.Model(&models.PaymentOrder{}).Where("id = ?", po.ID).Update("status", enums.PaymentOrderStatusPaid).Error)

	_, err := f.svc.StartGatewaySession(context.Background(), po.ID)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	require.Empty(t, f.gateway.requests)
}

func TestStartCashOnDeliveryStampsChildren(t *testing.T) {
	f := newFixture(t)
	po := f.createPaymentOrder(t, enums.PaymentMethodCashOnDelivery, f.seedOrders(t, 100, 200))

	var link *PaymentLink
	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		link, err = f.svc.StartCashOnDelivery(context.Background(), tx, po)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, CashOnDeliveryURL, link.URL)
	require.Equal(t, "COD-"+po.ID.String(), link.LinkID)
	require.Empty(t, f.gateway.requests)

	var children []models.Order
	require.NoError(t, f.conn.Where("payment_order_id = ?", po.ID).Find(&children).Error)
	require.Len(t, children, 2)
	for _, o := range children {
		require.NotNil(t, o.Payment.Method)
		require.Equal(t, enums.PaymentMethodCashOnDelivery, *o.Payment.Method)
		require.Equal(t, enums.PaymentStatusPending, o.Payment.Status)
	}
}

func TestGetIsOwnerScoped(t *testing.T) {
	f := newFixture(t)
	po := f.createPaymentOrder(t, enums.PaymentMethodGateway, f.seedOrders(t, 100))

	got, err := f.svc.Get(context.Background(), f.buyer.ID, po.ID)
	require.NoError(t, err)
	require.Len(t, got.Orders, 1)

	_, err = f.svc.Get(context.Background(), uuid.New(), po.ID)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = f.svc.Get(context.Background(), f.buyer.ID, uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
