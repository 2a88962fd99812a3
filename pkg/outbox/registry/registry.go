// Package registry routes outbox rows to broker topics and decodes their typed payloads.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	"github.com/bazar-market/bazar-backend/pkg/outbox"
	"github.com/bazar-market/bazar-backend/pkg/outbox/payloads"
)

type stream int

const (
	streamOrders stream = iota
	streamPayments
	streamSubscriptions
)

type route struct {
	aggregate enums.OutboxAggregateType
	stream    stream
	newData   func() any
}

var routes = map[enums.OutboxEventType]route{
	enums.EventCheckoutConverted:     {enums.AggregatePaymentOrder, streamOrders, func() any { return &payloads.CheckoutConvertedEvent{} }},
	enums.EventOrderStatusChanged:    {enums.AggregateOrder, streamOrders, func() any { return &payloads.OrderStatusChangedEvent{} }},
	enums.EventOrderCanceled:         {enums.AggregateOrder, streamOrders, func() any { return &payloads.OrderCanceledEvent{} }},
	enums.EventOrderSentToDelivery:   {enums.AggregateOrder, streamOrders, func() any { return &payloads.OrderSentToDeliveryEvent{} }},
	enums.EventPaymentSessionFailed:  {enums.AggregatePaymentOrder, streamPayments, func() any { return &payloads.PaymentSessionFailedEvent{} }},
	enums.EventPaymentOrderPaid:      {enums.AggregatePaymentOrder, streamPayments, func() any { return &payloads.PaymentOrderPaidEvent{} }},
	enums.EventSubscriptionChanged:   {enums.AggregateSubscription, streamSubscriptions, func() any { return &payloads.SubscriptionChangedEvent{} }},
	enums.EventSubscriptionDowngrade: {enums.AggregateSubscription, streamSubscriptions, func() any { return &payloads.SubscriptionDowngradedEvent{} }},
}

// Descriptor is the routing decision for one event type.
type Descriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is a validated outbox row ready to publish.
type ResolvedEvent struct {
	Descriptor Descriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will never publish and belongs in the DLQ.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// EventRegistry resolves outbox rows against the configured topic names.
type EventRegistry struct {
	topics map[stream]string
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topics := map[stream]string{
		streamOrders:        cfg.OrdersTopic,
		streamPayments:      cfg.PaymentsTopic,
		streamSubscriptions: cfg.SubscriptionsTopic,
	}
	var err error
	for s, name := range map[stream]string{streamOrders: "orders", streamPayments: "payments", streamSubscriptions: "subscriptions"} {
		if topics[s] == "" {
			err = multierr.Append(err, fmt.Errorf("%s topic is required", name))
		}
	}
	if err != nil {
		return nil, err
	}
	return &EventRegistry{topics: topics}, nil
}

// Topics lists the distinct topics, sorted.
func (r *EventRegistry) Topics() []string {
	out := make([]string, 0, len(r.topics))
	for _, t := range r.topics {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// Lookup returns the descriptor for an event type.
func (r *EventRegistry) Lookup(eventType enums.OutboxEventType) (Descriptor, bool) {
	rt, ok := routes[eventType]
	if !ok {
		return Descriptor{}, false
	}
	return Descriptor{EventType: eventType, AggregateType: rt.aggregate, Topic: r.topics[rt.stream]}, true
}

// Resolve checks the row's routing metadata and decodes its payload. Every failure is
// non-retryable since republishing the same bytes cannot succeed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.Lookup(event.EventType)
	if !ok {
		return nil, permanent("unsupported event type %s", event.EventType)
	}
	if desc.AggregateType != event.AggregateType {
		return nil, permanent("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return nil, permanent("missing aggregate_id")
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, permanent("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("payload missing for %s", event.EventType)
	}

	payload := routes[event.EventType].newData()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, permanent("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}

// IsNonRetryable reports whether err (or anything it wraps) is a NonRetryableError.
func IsNonRetryable(err error) bool {
	var nr NonRetryableError
	return errors.As(err, &nr)
}
