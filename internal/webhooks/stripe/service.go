package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bazar-market/bazar-backend/internal/payments"
	"github.com/bazar-market/bazar-backend/internal/subscriptions"
	"github.com/bazar-market/bazar-backend/pkg/db"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
	"github.com/bazar-market/bazar-backend/pkg/outbox"
	"github.com/bazar-market/bazar-backend/pkg/outbox/payloads"
	"github.com/bazar-market/bazar-backend/pkg/redis"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"
)

// Outcome describes what a delivery changed; it doubles as the metrics label.
type Outcome string

const (
	OutcomeIgnored      Outcome = "ignored"
	OutcomeSubscription Outcome = "subscription_upgraded"
	OutcomePaid         Outcome = "paid"
	OutcomeAlreadyPaid  Outcome = "already_paid"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type subscriptionUpgrader interface {
	Upgrade(ctx context.Context, sellerID uuid.UUID, planType enums.PlanType, stripeSubscriptionID string) (*models.SellerSubscription, error)
}

type transactionRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, order models.Order) (bool, error)
}

type paymentRecorder interface {
	RecordPayment(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, earningsCents int64, sales int) error
}

// ServiceParams wires the payment reconciler.
type ServiceParams struct {
	Payments      payments.Repository
	Tx            txRunner
	Correlations  redis.SessionCorrelationStore
	Subscriptions subscriptionUpgrader
	Transactions  transactionRecorder
	Reports       paymentRecorder
	Outbox        outboxPublisher
	Logger        *logger.Logger
}

// Service applies completed checkout sessions to payment orders and seller subscriptions.
type Service struct {
	payments      payments.Repository
	tx            txRunner
	correlations  redis.SessionCorrelationStore
	subscriptions subscriptionUpgrader
	transactions  transactionRecorder
	reports       paymentRecorder
	outbox        outboxPublisher
	logg          *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription service required")
	}
	if params.Transactions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction recorder required")
	}
	if params.Reports == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "report recorder required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments:      params.Payments,
		tx:            params.Tx,
		correlations:  params.Correlations,
		subscriptions: params.Subscriptions,
		transactions:  params.Transactions,
		reports:       params.Reports,
		outbox:        params.Outbox,
		logg:          params.Logger,
	}, nil
}

// HandleEvent processes checkout.session.completed and ignores every other type.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Outcome, error) {
	if event == nil || event.Data == nil {
		return OutcomeIgnored, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return OutcomeIgnored, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return OutcomeIgnored, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}

	if sellerRaw := strings.TrimSpace(sess.Metadata[subscriptions.MetadataSellerID]); sellerRaw != "" {
		if planType, ok := subscriptions.PlanFromMetadata(sess.Metadata); ok {
			return s.applySubscription(ctx, &sess, sellerRaw, planType)
		}
	}
	return s.applyOrderPayment(ctx, &sess)
}

func (s *Service) applySubscription(ctx context.Context, sess *stripe.CheckoutSession, sellerRaw string, planType enums.PlanType) (Outcome, error) {
	sellerID, err := uuid.Parse(sellerRaw)
	if err != nil {
		return OutcomeIgnored, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id in session metadata")
	}
	subscriptionID := ""
	if sess.Subscription != nil {
		subscriptionID = sess.Subscription.ID
	}
	if _, err := s.subscriptions.Upgrade(ctx, sellerID, planType, subscriptionID); err != nil {
		return OutcomeIgnored, err
	}
	return OutcomeSubscription, nil
}

func (s *Service) applyOrderPayment(ctx context.Context, sess *stripe.CheckoutSession) (Outcome, error) {
	paymentID := ""
	if sess.PaymentIntent != nil {
		paymentID = sess.PaymentIntent.ID
	}

	po, err := s.resolvePaymentOrder(ctx, sess, paymentID)
	if err != nil {
		return OutcomeIgnored, err
	}

	outcome := OutcomePaid
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		rows, err := repo.MarkPaidIfUnpaid(ctx, po.ID, paymentID, sess.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark payment order paid")
		}
		if rows == 0 {
			outcome = OutcomeAlreadyPaid
			return nil
		}

		reference := paymentID
		if reference == "" {
			reference = sess.ID
		}
		cancelled := enums.OrderStatusCancelled
		if err := repo.UpdateChildPayments(ctx, po.ID, map[string]any{
			"status":            enums.OrderStatusConfirmed,
			"payment_status":    enums.PaymentStatusCompleted,
			"payment_method":    po.PaymentMethod,
			"payment_reference": reference,
		}, &cancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm child orders")
		}

		children, err := repo.ListChildOrders(ctx, po.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list child orders")
		}
		orderIDs := make([]uuid.UUID, 0, len(children))
		for i, order := range children {
			if order.Status == enums.OrderStatusCancelled {
				continue
			}
			orderIDs = append(orderIDs, order.ID)
			s.bookkeep(ctx, tx, i, order)
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentOrderPaid,
			AggregateType: enums.AggregatePaymentOrder,
			AggregateID:   po.ID,
			Actor:         &outbox.ActorRef{UserID: po.UserID, Role: enums.RoleCustomer.String()},
			Data: payloads.PaymentOrderPaidEvent{
				PaymentOrderID: po.ID,
				UserID:         po.UserID,
				PaymentID:      paymentID,
				OrderIDs:       orderIDs,
				AmountCents:    po.AmountCents,
			},
			Version: 1,
		})
	})
	if err != nil {
		return OutcomeIgnored, err
	}
	return outcome, nil
}

// bookkeep records the audit row and seller report totals for one confirmed order. Sales count
// order lines, not units. A failure rolls back only this order's bookkeeping; the payment
// itself stays committed.
func (s *Service) bookkeep(ctx context.Context, tx *gorm.DB, idx int, order models.Order) {
	err := db.Savepoint(tx, fmt.Sprintf("payment_bookkeeping_%d", idx), func(sp *gorm.DB) error {
		created, err := s.transactions.Record(ctx, sp, order)
		if err != nil || !created {
			return err
		}
		return s.reports.RecordPayment(ctx, sp, order.SellerID, order.TotalSellingCents, len(order.Items))
	})
	if err != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"order_id":  order.ID.String(),
			"seller_id": order.SellerID.String(),
		}), "payment bookkeeping skipped", err)
	}
}

// resolvePaymentOrder tries the session metadata, then the payment intent, then the session
// correlation written when the checkout was opened.
func (s *Service) resolvePaymentOrder(ctx context.Context, sess *stripe.CheckoutSession, paymentID string) (*models.PaymentOrder, error) {
	if raw := strings.TrimSpace(sess.Metadata[payments.MetadataOrderID]); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			po, err := s.payments.FindByID(ctx, id)
			if err == nil {
				return po, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment order")
			}
		}
	}

	if paymentID != "" {
		po, err := s.payments.FindByPaymentID(ctx, paymentID)
		if err == nil {
			return po, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment order by payment id")
		}
	}

	if s.correlations != nil && sess.ID != "" {
		raw, err := s.correlations.LookupCheckoutSession(ctx, sess.ID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "session_id", sess.ID), fmt.Sprintf("session correlation lookup failed: %v", err))
		} else if id, perr := uuid.Parse(raw); perr == nil {
			po, err := s.payments.FindByID(ctx, id)
			if err == nil {
				return po, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load correlated payment order")
			}
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment order not found for checkout session").
		WithDetails(map[string]any{"session_id": sess.ID, "payment_id": paymentID})
}
