package enums

import "strings"

// OrderStatus is the counting status of a commerce order. Upstream
// writes the field as free text, so anything unrecognized counts as
// pending.
type OrderStatus string

const (
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
	OrderStatusPending OrderStatus = "pending"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPaid,
	OrderStatusFailed,
	OrderStatusPending,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// NormalizeOrderStatus lowercases raw input and maps unknown or missing
// values to pending.
func NormalizeOrderStatus(value string) OrderStatus {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	if status.IsValid() {
		return status
	}
	return OrderStatusPending
}
