package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	stripewebhook "github.com/bazar-market/bazar-backend/internal/webhooks/stripe"
)

const testSecret = "whsec_test"

type webhookHarness struct {
	svc     *stubEventService
	metrics *tally
	handler http.Handler
}

func newHarness(t *testing.T, outcome stripewebhook.Outcome, err error) *webhookHarness {
	t.Helper()
	guard, gerr := stripewebhook.NewIdempotencyGuard(newClaimMap(), time.Minute, "stripe-webhook")
	require.NoError(t, gerr)
	h := &webhookHarness{svc: &stubEventService{outcome: outcome, err: err}, metrics: &tally{}}
	h.handler = StripeWebhook(h.svc, signatureVerifier(testSecret), guard, h.metrics, nil)
	return h
}

func (h *webhookHarness) deliver(payload []byte, signature string) (int, string) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var body struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec.Code, body.Data.Status
}

func TestStripeWebhookAppliesOnceAndAcksDuplicates(t *testing.T) {
	h := newHarness(t, stripewebhook.OutcomePaid, nil)
	payload, sig := signedCheckoutCompleted(t)

	code, status := h.deliver(payload, sig)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "paid", status)

	code, status = h.deliver(payload, sig)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "duplicate", status)

	assert.Equal(t, 1, h.svc.calls)
	assert.Equal(t, 1, h.metrics.get("checkout.session.completed", "paid"))
	assert.Equal(t, 1, h.metrics.get("checkout.session.completed", "duplicate"))
}

func TestStripeWebhookRejectsBadSignatures(t *testing.T) {
	h := newHarness(t, stripewebhook.OutcomePaid, nil)
	payload, _ := signedCheckoutCompleted(t)

	code, _ := h.deliver(payload, "t=1,v1=invalid")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = h.deliver(payload, "")
	assert.Equal(t, http.StatusBadRequest, code)

	assert.Zero(t, h.svc.calls)
	assert.Equal(t, 2, h.metrics.get("unknown", "invalid_signature"))
}

func TestStripeWebhookFailureAcksAndAllowsReplay(t *testing.T) {
	h := newHarness(t, stripewebhook.OutcomePaid, errors.New("db down"))
	payload, sig := signedCheckoutCompleted(t)

	code, status := h.deliver(payload, sig)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", status)

	h.svc.err = nil
	code, status = h.deliver(payload, sig)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "paid", status)
	assert.Equal(t, 2, h.svc.calls)
}

func TestStripeWebhookWithoutService(t *testing.T) {
	rec := httptest.NewRecorder()
	StripeWebhook(nil, signatureVerifier(testSecret), nil, nil, nil).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func signedCheckoutCompleted(t *testing.T) ([]byte, string) {
	t.Helper()
	session, err := json.Marshal(&stripe.CheckoutSession{
		ID:            "cs_test_" + uuid.NewString(),
		Status:        stripe.CheckoutSessionStatusComplete,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{"orderId": uuid.NewString()},
	})
	require.NoError(t, err)
	event, err := json.Marshal(&stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: session},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   event,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

type stubEventService struct {
	calls   int
	outcome stripewebhook.Outcome
	err     error
}

func (s *stubEventService) HandleEvent(context.Context, *stripe.Event) (stripewebhook.Outcome, error) {
	s.calls++
	return s.outcome, s.err
}

type signatureVerifier string

func (secret signatureVerifier) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, string(secret), webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

type tally struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *tally) IncWebhookEvent(eventType, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[eventType+"/"+outcome]++
}

func (m *tally) get(eventType, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[eventType+"/"+outcome]
}

// claimMap is a SetNX/Del store backed by a map.
type claimMap struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newClaimMap() *claimMap { return &claimMap{keys: map[string]struct{}{}} }

func (c *claimMap) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = struct{}{}
	return true, nil
}

func (c *claimMap) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.keys, k)
	}
	return nil
}

func (c *claimMap) IdempotencyKey(scope, id string) string { return scope + ":" + id }
