package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bazar-market/bazar-backend/internal/notifications"
	"github.com/bazar-market/bazar-backend/internal/transactions"
	"github.com/bazar-market/bazar-backend/pkg/db"
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

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cancellationRecorder interface {
	RecordCancellation(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, refundCents int64) error
}

// Service owns per-seller orders from checkout split to delivery.
type Service interface {
	CreateOrders(ctx context.Context, tx *gorm.DB, userID uuid.UUID, shipping AddressInput, items []models.CartItem) ([]models.Order, error)

	FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, status *enums.OrderStatus) ([]models.Order, error)
	FindItem(ctx context.Context, userID, itemID uuid.UUID) (*models.OrderItem, error)

	UpdateStatus(ctx context.Context, sellerID, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	Delete(ctx context.Context, sellerID, orderID uuid.UUID) error
	SendToDelivery(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo         Repository
	Tx           txRunner
	Outbox       outboxPublisher
	Reports      cancellationRecorder
	Transactions transactions.Repository
	Notifier     notifications.Notifier
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	repo         Repository
	tx           txRunner
	outbox       outboxPublisher
	reports      cancellationRecorder
	transactions transactions.Repository
	notifier     notifications.Notifier
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Reports == nil {
		return nil, fmt.Errorf("report recorder required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         params.Repo,
		tx:           params.Tx,
		outbox:       params.Outbox,
		reports:      params.Reports,
		transactions: params.Transactions,
		notifier:     params.Notifier,
		logg:         params.Logger,
		now:          now,
	}, nil
}

func (s *service) FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return out, nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, status *enums.OrderStatus) ([]models.Order, error) {
	out, err := s.repo.ListBySeller(ctx, sellerID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller orders")
	}
	return out, nil
}

func (s *service) FindItem(ctx context.Context, userID, itemID uuid.UUID) (*models.OrderItem, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order item")
	}
	if item.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order item belongs to another user")
	}
	return item, nil
}

// UpdateStatus lets the owning seller move an order along its lifecycle. Cancelled and
// delivered orders are final.
func (s *service) UpdateStatus(ctx context.Context, sellerID, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the cancel endpoint to cancel orders")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockForSeller(ctx, repo, sellerID, orderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", order.Status))
		}
		from := order.Status
		if from == status {
			updated = order
			return nil
		}

		fields := map[string]any{"status": status}
		if status == enums.OrderStatusDelivered {
			fields["delivered_at"] = s.now().UTC()
		}
		if err := repo.UpdateFields(ctx, order.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if err := s.emitStatusChanged(ctx, tx, order, from, status); err != nil {
			return err
		}
		updated, err = s.load(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel lets the buyer cancel an order that has not shipped. Cancelling twice is a
// no-op and never refunds twice.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lock(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if order.Status == enums.OrderStatusCancelled {
			result, err = s.load(ctx, repo, order.ID)
			return err
		}
		if !order.Status.IsCancellable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order cannot be cancelled once %s", order.Status)).
				WithDetails(map[string]any{"status": order.Status})
		}

		if err := repo.UpdateFields(ctx, order.ID, map[string]any{
			"status":         enums.OrderStatusCancelled,
			"payment_status": enums.PaymentStatusCancelled,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}

		if err := db.Savepoint(tx, "order_cancel_report", func(tx *gorm.DB) error {
			return s.reports.RecordCancellation(ctx, tx, order.SellerID, order.TotalSellingCents)
		}); err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id":  order.ID.String(),
				"seller_id": order.SellerID.String(),
			})
			s.logg.Warn(logCtx, fmt.Sprintf("seller report not updated for cancellation: %v", err))
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.RoleCustomer.String()},
			Data: payloads.OrderCanceledEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				SellerID:    order.SellerID,
				RefundCents: order.TotalSellingCents,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order canceled")
		}

		result, err = s.load(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a seller's order. Audit rows go first, then the order row, which
// also drops it from its payment order.
func (s *service) Delete(ctx context.Context, sellerID, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockForSeller(ctx, repo, sellerID, orderID)
		if err != nil {
			return err
		}
		if err := s.transactions.WithTx(tx).DeleteByOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order transactions")
		}
		if err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
		}
		return nil
	})
}

// SendToDelivery notifies the delivery partner and marks the order shipped. A failed
// notification is logged and does not block the status change.
func (s *service) SendToDelivery(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another seller")
	}
	if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", order.Status))
	}

	notice, err := s.buildNotice(ctx, order)
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":  order.ID.String(),
		"seller_id": sellerID.String(),
	})
	notified := true
	if err := s.notifier.SendOrderToDelivery(ctx, notice); err != nil {
		notified = false
		s.logg.Warn(logCtx, fmt.Sprintf("delivery notification failed: %v", err))
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := s.lockForSeller(ctx, repo, sellerID, orderID)
		if err != nil {
			return err
		}
		if locked.Status == enums.OrderStatusCancelled || locked.Status == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", locked.Status))
		}
		if locked.Status != enums.OrderStatusShipped {
			if err := repo.UpdateFields(ctx, locked.ID, map[string]any{"status": enums.OrderStatusShipped}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order shipped")
			}
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSentToDelivery,
			AggregateType: enums.AggregateOrder,
			AggregateID:   locked.ID,
			Actor:         &outbox.ActorRef{SellerID: &sellerID, Role: enums.RoleSeller.String()},
			Data: payloads.OrderSentToDeliveryEvent{
				OrderID:  locked.ID,
				SellerID: sellerID,
				Notified: notified,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order sent to delivery")
		}
		updated, err = s.load(ctx, repo, locked.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(logCtx, "order sent to delivery")
	return updated, nil
}

func (s *service) buildNotice(ctx context.Context, order *models.Order) (notifications.DeliveryNotice, error) {
	seller, err := s.repo.FindSeller(ctx, order.SellerID)
	if err != nil {
		return notifications.DeliveryNotice{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller")
	}
	customer, err := s.repo.FindUser(ctx, order.UserID)
	if err != nil {
		return notifications.DeliveryNotice{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}

	notice := notifications.DeliveryNotice{
		OrderID:      order.ID,
		SellerName:   seller.Name,
		CustomerName: customer.FullName,
		TotalItems:   order.TotalItems,
		AmountCents:  order.TotalSellingCents,
	}
	if seller.BusinessMobile != nil {
		notice.SellerMobile = *seller.BusinessMobile
	} else if seller.Mobile != nil {
		notice.SellerMobile = *seller.Mobile
	}
	if seller.PickupAddress != nil {
		notice.PickupAddress = formatAddress(*seller.PickupAddress)
	} else if seller.BusinessAddress != nil {
		notice.PickupAddress = *seller.BusinessAddress
	}
	if order.ShippingAddress != nil {
		notice.ShippingAddress = formatAddress(*order.ShippingAddress)
	}
	if order.Payment.Method != nil {
		notice.PaymentMethod = order.Payment.Method.String()
	}
	for _, item := range order.Items {
		notice.Lines = append(notice.Lines, notifications.DeliveryLine{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
		})
	}
	return notice, nil
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, from, to enums.OrderStatus) error {
	sellerID := order.SellerID
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{SellerID: &sellerID, Role: enums.RoleSeller.String()},
		Data: payloads.OrderStatusChangedEvent{
			OrderID:  order.ID,
			SellerID: order.SellerID,
			UserID:   order.UserID,
			From:     from,
			To:       to,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order status changed")
	}
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) lock(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
	}
	return order, nil
}

func (s *service) lockForSeller(ctx context.Context, repo Repository, sellerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.lock(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another seller")
	}
	return order, nil
}

func formatAddress(a models.Address) string {
	parts := []string{a.Name, a.AddressLine}
	if a.Locality != nil && *a.Locality != "" {
		parts = append(parts, *a.Locality)
	}
	parts = append(parts, a.City, a.State+" "+a.Pincode)
	if a.Mobile != nil && *a.Mobile != "" {
		parts = append(parts, "ph "+*a.Mobile)
	}
	return strings.Join(parts, ", ")
}
