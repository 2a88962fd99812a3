package subscriptions

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
	"github.com/bazar-market/bazar-backend/pkg/stripe"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type productCounter interface {
	CountActiveBySellerTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (int64, error)
}

type checkoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

// Service manages seller plans and the product quota they grant.
type Service interface {
	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	EnsureDefaultPlans(ctx context.Context) error
	Current(ctx context.Context, sellerID uuid.UUID) (*models.SellerSubscription, error)
	CanAddProduct(ctx context.Context, sellerID uuid.UUID) (bool, error)
	EnsureCanAddProduct(ctx context.Context, sellerID uuid.UUID) error
	EnsureCanAddProductTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) error
	Upgrade(ctx context.Context, sellerID uuid.UUID, planType enums.PlanType, stripeSubscriptionID string) (*models.SellerSubscription, error)
	Subscribe(ctx context.Context, sellerID uuid.UUID, planType enums.PlanType) (*SubscribeResult, error)
	VerifyPayment(ctx context.Context, sellerID uuid.UUID, sessionID string) (*models.SellerSubscription, error)
	DowngradeExpired(ctx context.Context) (int, error)
}

// SubscribeResult either points at a hosted checkout or carries the plan applied directly.
type SubscribeResult struct {
	SessionID    string                     `json:"session_id,omitempty"`
	URL          string                     `json:"url,omitempty"`
	Subscription *models.SellerSubscription `json:"subscription,omitempty"`
}

// ServiceParams wires the subscription service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Products productCounter
	Outbox   outboxPublisher
	Gateway  checkoutGateway
	Stripe   config.StripeConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	products  productCounter
	outbox    outboxPublisher
	gateway   checkoutGateway
	stripeCfg config.StripeConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the subscription service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product counter required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		products:  params.Products,
		outbox:    params.Outbox,
		gateway:   params.Gateway,
		stripeCfg: params.Stripe,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) today() time.Time {
	return truncateDay(s.now())
}

func (s *service) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscription plans")
	}
	return plans, nil
}

// EnsureDefaultPlans seeds the catalog when it is empty.
func (s *service) EnsureDefaultPlans(ctx context.Context) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ensureDefaultPlans(ctx, s.repo.WithTx(tx))
	})
}

func (s *service) ensureDefaultPlans(ctx context.Context, repo Repository) error {
	n, err := repo.CountPlans(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count subscription plans")
	}
	if n > 0 {
		return nil
	}
	if err := repo.InsertPlans(ctx, DefaultPlans()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seed subscription plans")
	}
	s.logg.Info(ctx, "seeded default subscription plans")
	return nil
}

// Current returns the seller's subscription, creating the FREE one on first access.
func (s *service) Current(ctx context.Context, sellerID uuid.UUID) (*models.SellerSubscription, error) {
	var out *models.SellerSubscription
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = s.currentTx(ctx, s.repo.WithTx(tx), sellerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) currentTx(ctx context.Context, repo Repository, sellerID uuid.UUID) (*models.SellerSubscription, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	sub, err := repo.FindBySeller(ctx, sellerID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller subscription")
	}

	free, err := s.planTx(ctx, repo, enums.PlanTypeFree)
	if err != nil {
		return nil, err
	}
	start := s.today()
	if err := repo.CreateIfAbsent(ctx, &models.SellerSubscription{
		SellerID:  sellerID,
		PlanID:    free.ID,
		PlanType:  enums.PlanTypeFree,
		StartDate: start,
		EndDate:   periodEnd(enums.PlanTypeFree, start),
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create free subscription")
	}
	sub, err = repo.FindBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload seller subscription")
	}
	return sub, nil
}

func (s *service) planTx(ctx context.Context, repo Repository, planType enums.PlanType) (*models.SubscriptionPlan, error) {
	plan, err := repo.FindPlanByType(ctx, planType)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription plan")
	}
	if err := s.ensureDefaultPlans(ctx, repo); err != nil {
		return nil, err
	}
	plan, err = repo.FindPlanByType(ctx, planType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("subscription plan %s not found", planType))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription plan")
	}
	return plan, nil
}

// CanAddProduct reports whether the seller's plan leaves room for another active product.
// A lapsed paid plan that the sweeper has not reached yet counts as FREE.
func (s *service) CanAddProduct(ctx context.Context, sellerID uuid.UUID) (bool, error) {
	sub, err := s.Current(ctx, sellerID)
	if err != nil {
		return false, err
	}
	return s.withinQuota(ctx, s.repo, nil, sub)
}

func (s *service) EnsureCanAddProduct(ctx context.Context, sellerID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.EnsureCanAddProductTx(ctx, tx, sellerID)
	})
}

// EnsureCanAddProductTx checks the quota under a lock on the seller's subscription row.
// The caller inserts the product in the same tx, so two listings racing for the last
// slot cannot both pass.
func (s *service) EnsureCanAddProductTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	if _, err := s.currentTx(ctx, repo, sellerID); err != nil {
		return err
	}
	sub, err := repo.LockBySeller(ctx, sellerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock seller subscription")
	}
	ok, err := s.withinQuota(ctx, repo, tx, sub)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "product limit reached for current subscription plan")
	}
	return nil
}

func (s *service) withinQuota(ctx context.Context, repo Repository, tx *gorm.DB, sub *models.SellerSubscription) (bool, error) {
	plan := sub.Plan
	if !sub.IsActive(s.today()) || plan == nil {
		var err error
		if plan, err = s.planTx(ctx, repo, enums.PlanTypeFree); err != nil {
			return false, err
		}
	}
	if plan.Unlimited() {
		return true, nil
	}
	count, err := s.products.CountActiveBySellerTx(ctx, tx, sub.SellerID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count seller products")
	}
	return count < int64(*plan.MaxProducts), nil
}

// Upgrade moves the seller onto planType starting today.
func (s *service) Upgrade(ctx context.Context, sellerID uuid.UUID, planType enums.PlanType, stripeSubscriptionID string) (*models.SellerSubscription, error) {
	if !planType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan type")
	}
	var out *models.SellerSubscription
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = s.upgradeTx(ctx, tx, sellerID, planType, stripeSubscriptionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) upgradeTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, planType enums.PlanType, stripeSubscriptionID string) (*models.SellerSubscription, error) {
	repo := s.repo.WithTx(tx)
	sub, err := s.currentTx(ctx, repo, sellerID)
	if err != nil {
		return nil, err
	}
	plan, err := s.planTx(ctx, repo, planType)
	if err != nil {
		return nil, err
	}

	start := s.today()
	end := periodEnd(planType, start)
	fields := map[string]any{
		"plan_id":    plan.ID,
		"plan_type":  planType,
		"start_date": start,
		"end_date":   end,
		"auto_renew": !planType.IsFree() && stripeSubscriptionID != "",
	}
	if stripeSubscriptionID != "" {
		fields["stripe_subscription_id"] = stripeSubscriptionID
	} else if planType.IsFree() {
		fields["stripe_subscription_id"] = nil
	}
	if err := repo.UpdateFields(ctx, sub.ID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update seller subscription")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSubscriptionChanged,
		AggregateType: enums.AggregateSubscription,
		AggregateID:   sub.ID,
		Actor:         &outbox.ActorRef{SellerID: &sellerID, Role: enums.RoleSeller.String()},
		Data: payloads.SubscriptionChangedEvent{
			SellerID:       sellerID,
			SubscriptionID: sub.ID,
			PlanType:       planType,
			StartDate:      start,
			EndDate:        end,
		},
		Version: 1,
	}); err != nil {
		return nil, err
	}

	updated, err := repo.FindBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload seller subscription")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"seller_id": sellerID.String(),
		"plan_type": planType.String(),
	}), "seller subscription changed")
	return updated, nil
}

// Subscribe applies FREE directly and opens a recurring hosted checkout for paid tiers.
func (s *service) Subscribe(ctx context.Context, sellerID uuid.UUID, planType enums.PlanType) (*SubscribeResult, error) {
	if !planType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan type")
	}
	if planType.IsFree() {
		sub, err := s.Upgrade(ctx, sellerID, planType, "")
		if err != nil {
			return nil, err
		}
		return &SubscribeResult{Subscription: sub}, nil
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider not configured")
	}

	var plan *models.SubscriptionPlan
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		plan, err = s.planTx(ctx, s.repo.WithTx(tx), planType)
		return err
	}); err != nil {
		return nil, err
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, stripe.CheckoutSessionRequest{
		Mode:        stripe.ModeSubscription,
		ProductName: fmt.Sprintf("%s plan", plan.Name),
		AmountCents: plan.PriceCents,
		Currency:    s.stripeCfg.NormalizedCurrency(),
		SuccessURL:  s.stripeCfg.SubscriptionSuccessURL,
		CancelURL:   s.stripeCfg.SubscriptionCancelURL,
		Metadata: map[string]string{
			MetadataSellerID: sellerID.String(),
			MetadataPlanType: planType.String(),
			MetadataPlanName: plan.Name,
		},
	})
	if err != nil {
		var gwErr *stripe.GatewayError
		details := map[string]any{"plan_type": planType}
		if errors.As(err, &gwErr) {
			details["provider_code"] = gwErr.Code
			details["provider_message"] = gwErr.Message
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment provider rejected subscription checkout").WithDetails(details)
	}
	return &SubscribeResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// VerifyPayment upgrades the seller once the hosted checkout reports success.
func (s *service) VerifyPayment(ctx context.Context, sellerID uuid.UUID, sessionID string) (*models.SellerSubscription, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider not configured")
	}
	sess, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "retrieve checkout session")
	}
	if sess.Status != stripe.SessionStatusComplete && sess.PaymentStatus != stripe.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment not completed").
			WithDetails(map[string]any{"status": sess.Status, "payment_status": sess.PaymentStatus})
	}
	if sess.Metadata[MetadataSellerID] != sellerID.String() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout session belongs to another seller")
	}
	planType, ok := PlanFromMetadata(sess.Metadata)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session carries no plan")
	}
	return s.Upgrade(ctx, sellerID, planType, sess.SubscriptionID)
}

// DowngradeExpired moves every lapsed paid subscription back to FREE. Each row runs in its own
// transaction; failures are collected and the rest continue.
func (s *service) DowngradeExpired(ctx context.Context) (int, error) {
	today := s.today()
	expired, err := s.repo.ListExpired(ctx, today)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list expired subscriptions")
	}

	var (
		downgraded int
		errs       error
	)
	for _, sub := range expired {
		changed, err := s.downgradeOne(ctx, sub, today)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("downgrade subscription %s: %w", sub.ID, err))
			continue
		}
		if changed {
			downgraded++
		}
	}
	return downgraded, errs
}

func (s *service) downgradeOne(ctx context.Context, sub models.SellerSubscription, today time.Time) (bool, error) {
	changed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		free, err := s.planTx(ctx, repo, enums.PlanTypeFree)
		if err != nil {
			return err
		}
		rows, err := repo.DowngradeIfExpired(ctx, sub.ID, today, map[string]any{
			"plan_id":                free.ID,
			"plan_type":              enums.PlanTypeFree,
			"start_date":             today,
			"end_date":               periodEnd(enums.PlanTypeFree, today),
			"stripe_subscription_id": nil,
			"auto_renew":             false,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		changed = true
		sellerID := sub.SellerID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionDowngrade,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Actor:         &outbox.ActorRef{SellerID: &sellerID, Role: enums.RoleSeller.String()},
			Data: payloads.SubscriptionDowngradedEvent{
				SellerID:       sub.SellerID,
				SubscriptionID: sub.ID,
				FromPlan:       sub.PlanType,
				ExpiredOn:      sub.EndDate,
			},
			Version: 1,
		})
	})
	return changed, err
}
