package enums

import "fmt"

// OrderStatus is the single source of truth for an order's lifecycle.
type OrderStatus string

const (
	OrderStatusPending              OrderStatus = "pending"
	OrderStatusAcceptedByShopkeeper OrderStatus = "accepted_by_shopkeeper"
	OrderStatusAssignedToRider      OrderStatus = "assigned_to_rider"
	OrderStatusOutForDelivery       OrderStatus = "out_for_delivery"
	OrderStatusDelivered            OrderStatus = "delivered"
	OrderStatusCancelled            OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAcceptedByShopkeeper,
	OrderStatusAssignedToRider,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status absorbs all further transitions.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered || o == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
