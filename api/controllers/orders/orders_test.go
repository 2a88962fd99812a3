package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/api/middleware"
	"github.com/bazar-market/bazar-backend/internal/checkout"
	internalorders "github.com/bazar-market/bazar-backend/internal/orders"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
)

type stubCheckout struct {
	input checkout.Input
	calls int
	err   error
}

func (s *stubCheckout) Execute(_ context.Context, _ uuid.UUID, input checkout.Input) (*checkout.Result, error) {
	s.calls++
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.Result{PaymentOrderID: uuid.New(), PaymentMethod: input.Method.String(), AmountCents: 2500}, nil
}

type stubOrders struct {
	order     *models.Order
	item      *models.OrderItem
	list      []models.Order
	err       error
	status    *enums.OrderStatus
	newStatus enums.OrderStatus
	deleted   uuid.UUID
}

func (s *stubOrders) FindForUser(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) ListForUser(context.Context, uuid.UUID) ([]models.Order, error) {
	return s.list, s.err
}

func (s *stubOrders) FindItem(context.Context, uuid.UUID, uuid.UUID) (*models.OrderItem, error) {
	return s.item, s.err
}

func (s *stubOrders) Cancel(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.order.Status = enums.OrderStatusCancelled
	return s.order, nil
}

func (s *stubOrders) ListForSeller(_ context.Context, _ uuid.UUID, status *enums.OrderStatus) ([]models.Order, error) {
	s.status = status
	return s.list, s.err
}

func (s *stubOrders) UpdateStatus(_ context.Context, _ uuid.UUID, _ uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	s.newStatus = status
	if s.err != nil {
		return nil, s.err
	}
	s.order.Status = status
	return s.order, nil
}

func (s *stubOrders) Delete(_ context.Context, _ uuid.UUID, orderID uuid.UUID) error {
	s.deleted = orderID
	return s.err
}

func (s *stubOrders) SendToDelivery(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.order.Status = enums.OrderStatusShipped
	return s.order, nil
}

func newRouter(co CheckoutService, svc *stubOrders) http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", Create(co, nil))
	r.Get("/orders", List(svc, nil))
	r.Get("/orders/items/{itemId}", ItemDetail(svc, nil))
	r.Get("/orders/{orderId}", Detail(svc, nil))
	r.Put("/orders/{orderId}/cancel", Cancel(svc, nil))
	r.Get("/seller/orders", SellerList(svc, nil))
	r.Patch("/seller/orders/{orderId}/status/{status}", SellerUpdateStatus(svc, nil))
	r.Delete("/seller/orders/{orderId}", SellerDelete(svc, nil))
	r.Post("/seller/orders/{orderId}/send-to-delivery", SendToDelivery(svc, nil))
	return r
}

func buyer(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func seller(req *http.Request) *http.Request {
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithSellerID(ctx, uuid.NewString())
	return req.WithContext(ctx)
}

const shippingBody = `{"name":"Ada","address_line":"1 Main St","city":"Pune","state":"MH","pincode":"411001"}`

func TestCreateParsesPaymentMethod(t *testing.T) {
	co := &stubCheckout{}
	req := buyer(httptest.NewRequest(http.MethodPost, "/orders?paymentMethod=CASH_ON_DELIVERY", bytes.NewReader([]byte(shippingBody))))
	rec := httptest.NewRecorder()
	newRouter(co, &stubOrders{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if co.input.Method != enums.PaymentMethodCashOnDelivery {
		t.Fatalf("expected cash on delivery, got %q", co.input.Method)
	}
	if co.input.Shipping.City != "Pune" {
		t.Fatalf("shipping not forwarded: %+v", co.input.Shipping)
	}
}

func TestCreateRejectsMissingOrUnknownMethod(t *testing.T) {
	for _, path := range []string{"/orders", "/orders?paymentMethod=barter"} {
		co := &stubCheckout{}
		req := buyer(httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(shippingBody))))
		rec := httptest.NewRecorder()
		newRouter(co, &stubOrders{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", path, rec.Code)
		}
		if co.calls != 0 {
			t.Fatalf("%s: checkout should not run", path)
		}
	}
}

func TestCreateGatewayErrorIs502(t *testing.T) {
	co := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeGateway, "payment provider rejected session")}
	req := buyer(httptest.NewRequest(http.MethodPost, "/orders?paymentMethod=GATEWAY", bytes.NewReader([]byte(shippingBody))))
	rec := httptest.NewRecorder()
	newRouter(co, &stubOrders{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", rec.Code)
	}
}

func TestDetailAndCancel(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPlaced}
	svc := &stubOrders{order: order}
	h := newRouter(&stubCheckout{}, svc)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, buyer(httptest.NewRequest(http.MethodGet, "/orders/"+order.ID.String(), nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, buyer(httptest.NewRequest(http.MethodPut, "/orders/"+order.ID.String()+"/cancel", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data internalorders.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", envelope.Data.Status)
	}
}

func TestDetailForeignOrderIsForbidden(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")}
	rec := httptest.NewRecorder()
	newRouter(&stubCheckout{}, svc).ServeHTTP(rec, buyer(httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString(), nil)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestItemDetailRoute(t *testing.T) {
	item := &models.OrderItem{ID: uuid.New(), Quantity: 2}
	rec := httptest.NewRecorder()
	newRouter(&stubCheckout{}, &stubOrders{item: item}).ServeHTTP(rec, buyer(httptest.NewRequest(http.MethodGet, "/orders/items/"+item.ID.String(), nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestSellerListStatusFilter(t *testing.T) {
	svc := &stubOrders{list: []models.Order{{ID: uuid.New()}}}
	h := newRouter(&stubCheckout{}, svc)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, seller(httptest.NewRequest(http.MethodGet, "/seller/orders?status=SHIPPED", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.status == nil || *svc.status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped filter, got %v", svc.status)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, seller(httptest.NewRequest(http.MethodGet, "/seller/orders?status=lost", nil)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestSellerRoutesRequireSellerContext(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubCheckout{}, &stubOrders{}).ServeHTTP(rec, buyer(httptest.NewRequest(http.MethodGet, "/seller/orders", nil)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestSellerUpdateStatusAndDelivery(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPlaced}
	svc := &stubOrders{order: order}
	h := newRouter(&stubCheckout{}, svc)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, seller(httptest.NewRequest(http.MethodPatch, "/seller/orders/"+order.ID.String()+"/status/CONFIRMED", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.newStatus != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", svc.newStatus)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, seller(httptest.NewRequest(http.MethodPost, "/seller/orders/"+order.ID.String()+"/send-to-delivery", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if order.Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", order.Status)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, seller(httptest.NewRequest(http.MethodDelete, "/seller/orders/"+order.ID.String(), nil)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if svc.deleted != order.ID {
		t.Fatalf("unexpected delete target %s", svc.deleted)
	}
}
