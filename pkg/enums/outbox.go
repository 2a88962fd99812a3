package enums

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregatePaymentOrder OutboxAggregateType = "payment_order"
	AggregateSubscription OutboxAggregateType = "seller_subscription"
)

func (a OutboxAggregateType) IsValid() bool {
	return member(a, []OutboxAggregateType{AggregateOrder, AggregatePaymentOrder, AggregateSubscription})
}

// OutboxEventType is the event_type_enum column of outbox_events.
type OutboxEventType string

const (
	EventCheckoutConverted     OutboxEventType = "checkout_converted"
	EventPaymentSessionFailed  OutboxEventType = "payment_session_failed"
	EventPaymentOrderPaid      OutboxEventType = "payment_order_paid"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderCanceled         OutboxEventType = "order_canceled"
	EventOrderSentToDelivery   OutboxEventType = "order_sent_to_delivery"
	EventSubscriptionChanged   OutboxEventType = "subscription_changed"
	EventSubscriptionDowngrade OutboxEventType = "subscription_downgraded"
)

var outboxEventTypes = []OutboxEventType{
	EventCheckoutConverted, EventPaymentSessionFailed, EventPaymentOrderPaid,
	EventOrderStatusChanged, EventOrderCanceled, EventOrderSentToDelivery,
	EventSubscriptionChanged, EventSubscriptionDowngrade,
}

func (e OutboxEventType) IsValid() bool { return member(e, outboxEventTypes) }

// OutboxDLQErrorReason records why the publisher parked an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return member(r, []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable})
}
