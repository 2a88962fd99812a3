package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/webhook"
)

const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"

	SessionStatusComplete = "complete"
	PaymentStatusPaid     = "paid"
)

// CheckoutSessionRequest describes a single-line hosted checkout.
type CheckoutSessionRequest struct {
	Mode        string
	ProductName string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CheckoutSession is the subset of the provider session the services consume.
type CheckoutSession struct {
	ID              string
	URL             string
	Status          string
	PaymentStatus   string
	PaymentIntentID string
	SubscriptionID  string
	Metadata        map[string]string
}

// GatewayError carries the provider's code and message so operators can act on it.
type GatewayError struct {
	Code    string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment provider error: %s", e.Message)
	}
	return fmt.Sprintf("payment provider error (%s): %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

var (
	sessionNew = session.New
	sessionGet = session.Get
)

// CreateCheckoutSession opens a hosted checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	params, err := buildSessionParams(req)
	if err != nil {
		return nil, err
	}
	params.Context = ctx
	sess, err := sessionNew(params)
	if err != nil {
		return nil, toGatewayError(err)
	}
	return fromStripeSession(sess), nil
}

// GetCheckoutSession retrieves a session by id.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("session id is required")
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := sessionGet(id, params)
	if err != nil {
		return nil, toGatewayError(err)
	}
	return fromStripeSession(sess), nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, c.SigningSecret(), webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func buildSessionParams(req CheckoutSessionRequest) (*stripe.CheckoutSessionParams, error) {
	mode := strings.TrimSpace(req.Mode)
	if mode != ModePayment && mode != ModeSubscription {
		return nil, fmt.Errorf("unsupported checkout mode %q", req.Mode)
	}
	if req.AmountCents <= 0 {
		return nil, errors.New("checkout amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		return nil, errors.New("checkout currency is required")
	}

	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency: stripe.String(currency),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(req.ProductName),
		},
		UnitAmount: stripe.Int64(req.AmountCents),
	}
	if mode == ModeSubscription {
		priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(mode),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: priceData,
				Quantity:  stripe.Int64(1),
			},
		},
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	if mode == ModeSubscription && len(req.Metadata) > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.Metadata,
		}
	}
	return params, nil
}

func fromStripeSession(sess *stripe.CheckoutSession) *CheckoutSession {
	if sess == nil {
		return nil
	}
	out := &CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	return out
}

func toGatewayError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &GatewayError{Code: string(stripeErr.Code), Message: stripeErr.Msg, Err: err}
	}
	return &GatewayError{Message: err.Error(), Err: err}
}
