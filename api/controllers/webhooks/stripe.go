package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/bazar-market/bazar-backend/api/responses"
	stripewebhook "github.com/bazar-market/bazar-backend/internal/webhooks/stripe"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

const maxPayloadBytes = 1 << 16

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (stripewebhook.Outcome, error)
}

// EventGuard dedupes deliveries by event id.
type EventGuard interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// EventVerifier checks the Stripe-Signature header and decodes the event.
type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// EventRecorder counts deliveries by type and outcome.
type EventRecorder interface {
	IncWebhookEvent(eventType, outcome string)
}

// StripeWebhook verifies and applies Stripe checkout events. Once the signature checks out
// the provider always gets a 200; failures are logged and the dedupe key is released so
// the event can be replayed.
func StripeWebhook(svc StripeWebhookService, verifier EventVerifier, guard EventGuard, metrics EventRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			record(metrics, "unknown", "invalid_signature")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := verifier.ConstructEvent(payload, sigHeader)
		if err != nil {
			record(metrics, "unknown", "invalid_signature")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature"))
			return
		}

		eventType := string(event.Type)
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"event_id":   event.ID,
				"event_type": eventType,
			})
		}

		if guard != nil {
			claimed, err := guard.Claim(ctx, event.ID)
			if err != nil {
				if logg != nil {
					logg.Warn(ctx, "stripe webhook idempotency check failed; processing anyway")
				}
			} else if !claimed {
				record(metrics, eventType, "duplicate")
				responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
				return
			}
		}

		outcome, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			record(metrics, eventType, "error")
			if logg != nil {
				logg.Error(ctx, "stripe webhook processing failed", err)
			}
			if guard != nil {
				if delErr := guard.Release(ctx, event.ID); delErr != nil && logg != nil {
					logg.Error(ctx, "release stripe webhook idempotency key", delErr)
				}
			}
			responses.WriteSuccess(w, map[string]string{"status": "error"})
			return
		}

		record(metrics, eventType, string(outcome))
		if logg != nil {
			logg.Info(ctx, "stripe event processed")
		}
		responses.WriteSuccess(w, map[string]string{"status": string(outcome)})
	}
}

func record(metrics EventRecorder, eventType, outcome string) {
	if metrics != nil {
		metrics.IncWebhookEvent(eventType, outcome)
	}
}
