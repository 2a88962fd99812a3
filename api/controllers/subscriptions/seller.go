package subscriptions

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/api/controllers/endpoint"
	subsvc "github.com/bazar-market/bazar-backend/internal/subscriptions"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

const dateLayout = "2006-01-02"

// SubscriptionService is the seller-facing slice of internal/subscriptions.
type SubscriptionService interface {
	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	Current(ctx context.Context, sellerID uuid.UUID) (*models.SellerSubscription, error)
	Subscribe(ctx context.Context, sellerID uuid.UUID, planType enums.PlanType) (*subsvc.SubscribeResult, error)
	VerifyPayment(ctx context.Context, sellerID uuid.UUID, sessionID string) (*models.SellerSubscription, error)
}

type subscribeRequest struct {
	PlanType string `json:"plan_type" validate:"required,max=32"`
}

type verifyPaymentRequest struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
}

type planResponse struct {
	ID          uuid.UUID      `json:"id"`
	PlanType    enums.PlanType `json:"plan_type"`
	Name        string         `json:"name"`
	PriceCents  int64          `json:"price_cents"`
	MaxProducts *int           `json:"max_products"`
	Unlimited   bool           `json:"unlimited"`
}

type subscriptionResponse struct {
	ID                   uuid.UUID      `json:"id"`
	SellerID             uuid.UUID      `json:"seller_id"`
	PlanType             enums.PlanType `json:"plan_type"`
	Plan                 *planResponse  `json:"plan,omitempty"`
	StartDate            string         `json:"start_date"`
	EndDate              string         `json:"end_date"`
	Active               bool           `json:"active"`
	StripeSubscriptionID *string        `json:"stripe_subscription_id,omitempty"`
}

type subscribeResponse struct {
	SessionID    string                `json:"session_id,omitempty"`
	URL          string                `json:"url,omitempty"`
	Subscription *subscriptionResponse `json:"subscription,omitempty"`
}

const unavailable = "subscription service"

// Plans lists the plan catalog, cheapest first.
func Plans(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		plans, err := svc.ListPlans(r.Context())
		if err != nil {
			return nil, err
		}
		out := make([]planResponse, len(plans))
		for i, p := range plans {
			out[i] = toPlanResponse(p)
		}
		return out, nil
	})
}

// Current returns the seller's subscription, starting them on FREE when none exists.
func Current(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		sellerID, err := endpoint.SellerID(r)
		if err != nil {
			return nil, err
		}
		sub, err := svc.Current(r.Context(), sellerID)
		if err != nil {
			return nil, err
		}
		return toSubscriptionResponse(sub), nil
	})
}

// Subscribe opens a recurring checkout for paid plans or applies FREE directly.
func Subscribe(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		sellerID, err := endpoint.SellerID(r)
		if err != nil {
			return nil, err
		}
		req, err := endpoint.Body[subscribeRequest](r)
		if err != nil {
			return nil, err
		}
		planType, err := enums.ParsePlanType(req.PlanType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan_type")
		}
		result, err := svc.Subscribe(r.Context(), sellerID, planType)
		if err != nil {
			return nil, err
		}
		out := subscribeResponse{SessionID: result.SessionID, URL: result.URL}
		if result.Subscription != nil {
			out.Subscription = toSubscriptionResponse(result.Subscription)
		}
		return out, nil
	})
}

// VerifyPayment confirms a finished subscription checkout and applies the plan.
func VerifyPayment(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, unavailable)
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		sellerID, err := endpoint.SellerID(r)
		if err != nil {
			return nil, err
		}
		req, err := endpoint.Body[verifyPaymentRequest](r)
		if err != nil {
			return nil, err
		}
		sub, err := svc.VerifyPayment(r.Context(), sellerID, req.SessionID)
		if err != nil {
			return nil, err
		}
		return toSubscriptionResponse(sub), nil
	})
}

func toPlanResponse(p models.SubscriptionPlan) planResponse {
	return planResponse{
		ID:          p.ID,
		PlanType:    p.PlanType,
		Name:        p.Name,
		PriceCents:  p.PriceCents,
		MaxProducts: p.MaxProducts,
		Unlimited:   p.Unlimited(),
	}
}

func toSubscriptionResponse(sub *models.SellerSubscription) *subscriptionResponse {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	out := &subscriptionResponse{
		ID:                   sub.ID,
		SellerID:             sub.SellerID,
		PlanType:             sub.PlanType,
		StartDate:            sub.StartDate.Format(dateLayout),
		EndDate:              sub.EndDate.Format(dateLayout),
		Active:               sub.IsActive(today),
		StripeSubscriptionID: sub.StripeSubscriptionID,
	}
	if sub.Plan != nil {
		plan := toPlanResponse(*sub.Plan)
		out.Plan = &plan
	}
	return out
}
