package enums

import "strings"

// PaymentStatus is stamped on each order and mirrors its payment order's outcome.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

var paymentStatuses = []PaymentStatus{
	PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
	PaymentStatusFailed, PaymentStatusCancelled,
}

func (p PaymentStatus) String() string { return string(p) }
func (p PaymentStatus) IsValid() bool  { return member(p, paymentStatuses) }

// PaymentOrderStatus is the state of the checkout-wide payment envelope.
type PaymentOrderStatus string

const (
	PaymentOrderStatusPending PaymentOrderStatus = "pending"
	PaymentOrderStatusPaid    PaymentOrderStatus = "paid"
	PaymentOrderStatusFailed  PaymentOrderStatus = "failed"
)

var paymentOrderStatuses = []PaymentOrderStatus{
	PaymentOrderStatusPending, PaymentOrderStatusPaid, PaymentOrderStatusFailed,
}

func (p PaymentOrderStatus) String() string { return string(p) }
func (p PaymentOrderStatus) IsValid() bool  { return member(p, paymentOrderStatuses) }

// PaymentMethod is how the buyer settles a checkout.
type PaymentMethod string

const (
	PaymentMethodGateway        PaymentMethod = "gateway"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

var paymentMethods = []PaymentMethod{PaymentMethodGateway, PaymentMethodCashOnDelivery}

func (p PaymentMethod) String() string { return string(p) }
func (p PaymentMethod) IsValid() bool  { return member(p, paymentMethods) }

// IsDeferred is true when money changes hands outside the gateway.
func (p PaymentMethod) IsDeferred() bool { return p == PaymentMethodCashOnDelivery }

// ParsePaymentMethod also accepts "stripe" for the gateway path.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	if strings.EqualFold(strings.TrimSpace(raw), "stripe") {
		return PaymentMethodGateway, nil
	}
	return parse("payment method", raw, paymentMethods)
}
