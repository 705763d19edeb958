package enums

import "fmt"

// OrderEventType is the canonical event_type for order trigger envelopes.
type OrderEventType string

const (
	OrderEventChanged OrderEventType = "order_changed"
	OrderEventDeleted OrderEventType = "order_deleted"
)

var validOrderEventTypes = []OrderEventType{
	OrderEventChanged,
	OrderEventDeleted,
}

// IsValid reports whether the value matches the canonical order event_type enum.
func (o OrderEventType) IsValid() bool {
	for _, candidate := range validOrderEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderEventType converts the raw string to OrderEventType.
func ParseOrderEventType(value string) (OrderEventType, error) {
	for _, candidate := range validOrderEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event type %q", value)
}
