package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	"github.com/bazar-market/bazar-backend/pkg/outbox"
	"github.com/bazar-market/bazar-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		OrdersTopic:        "orders-topic",
		PaymentsTopic:      "payments-topic",
		SubscriptionsTopic: "subscriptions-topic",
	})
	require.NoError(t, err)
	return reg
}

func row(et enums.OutboxEventType, agg enums.OutboxAggregateType, id uuid.UUID, payload json.RawMessage) models.OutboxEvent {
	return models.OutboxEvent{EventRecord: models.EventRecord{
		EventType:     et,
		AggregateType: agg,
		AggregateID:   id,
		Payload:       payload,
	}}
}

func envelopeOf(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, ok := data.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(t, err)
	}
	out, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.CurrentEnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return out
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := testRegistry(t)
	orderID := uuid.New()

	resolved, err := reg.Resolve(row(enums.EventCheckoutConverted, enums.AggregatePaymentOrder, uuid.New(),
		envelopeOf(t, payloads.CheckoutConvertedEvent{
			PaymentOrderID: uuid.New(),
			OrderIDs:       []uuid.UUID{orderID},
			PaymentMethod:  enums.PaymentMethodGateway,
			AmountCents:    2500,
		})))
	require.NoError(t, err)

	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	payload, ok := resolved.Payload.(*payloads.CheckoutConvertedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, []uuid.UUID{orderID}, payload.OrderIDs)
	assert.EqualValues(t, 2500, payload.AmountCents)
}

func TestResolveRejectsBadRowsPermanently(t *testing.T) {
	reg := testRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type":       row("reservation_released", enums.AggregateOrder, uuid.New(), envelopeOf(t, []byte(`{"reason":"none"}`))),
		"aggregate mismatch": row(enums.EventCheckoutConverted, enums.AggregateOrder, uuid.New(), envelopeOf(t, []byte(`{}`))),
		"nil aggregate":      row(enums.EventPaymentOrderPaid, enums.AggregatePaymentOrder, uuid.Nil, envelopeOf(t, []byte(`{}`))),
		"null data":          row(enums.EventPaymentOrderPaid, enums.AggregatePaymentOrder, uuid.New(), envelopeOf(t, []byte("null"))),
		"garbage envelope":   row(enums.EventPaymentOrderPaid, enums.AggregatePaymentOrder, uuid.New(), json.RawMessage(`not-json`)),
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			assert.True(t, IsNonRetryable(err))
		})
	}
}

func TestLookupRoutesByStream(t *testing.T) {
	reg := testRegistry(t)
	for eventType, topic := range map[enums.OutboxEventType]string{
		enums.EventOrderCanceled:         "orders-topic",
		enums.EventPaymentOrderPaid:      "payments-topic",
		enums.EventSubscriptionDowngrade: "subscriptions-topic",
	} {
		desc, ok := reg.Lookup(eventType)
		require.True(t, ok, eventType)
		assert.Equal(t, topic, desc.Topic)
	}
	assert.Equal(t, []string{"orders-topic", "payments-topic", "subscriptions-topic"}, reg.Topics())
}

func TestEveryEventTypeIsRouted(t *testing.T) {
	for _, et := range outboxEventTypesForTest() {
		_, ok := routes[et]
		assert.True(t, ok, "%s has no route", et)
	}
}

func TestNewEventRegistryReportsAllMissingTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payments topic is required")
	assert.Contains(t, err.Error(), "subscriptions topic is required")
}

func outboxEventTypesForTest() []enums.OutboxEventType {
	return []enums.OutboxEventType{
		enums.EventCheckoutConverted, enums.EventPaymentSessionFailed, enums.EventPaymentOrderPaid,
		enums.EventOrderStatusChanged, enums.EventOrderCanceled, enums.EventOrderSentToDelivery,
		enums.EventSubscriptionChanged, enums.EventSubscriptionDowngrade,
	}
}
