package enums

// OrderStatus is the fulfillment state of one seller's order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending, OrderStatusPlaced, OrderStatusConfirmed,
	OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
}

func (o OrderStatus) String() string { return string(o) }
func (o OrderStatus) IsValid() bool  { return member(o, orderStatuses) }

func ParseOrderStatus(raw string) (OrderStatus, error) {
	return parse("order status", raw, orderStatuses)
}

// IsCancellable reports whether the buyer may still cancel. Once shipped it is too late.
func (o OrderStatus) IsCancellable() bool {
	switch o {
	case OrderStatusPending, OrderStatusPlaced, OrderStatusConfirmed:
		return true
	}
	return false
}
