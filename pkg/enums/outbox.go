package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column on outbox_events.
type OutboxAggregateType string

const (
	AggregateDiscount OutboxAggregateType = "discount"
	AggregateProduct  OutboxAggregateType = "product"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateDiscount,
	AggregateProduct,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type column on outbox_events.
type OutboxEventType string

const (
	EventDiscountApplied          OutboxEventType = "discount_applied"
	EventDiscountUpdated          OutboxEventType = "discount_updated"
	EventDiscountDeleted          OutboxEventType = "discount_deleted"
	EventDiscountWindowTransition OutboxEventType = "discount_window_transition"
)

var validEventTypes = []OutboxEventType{
	EventDiscountApplied,
	EventDiscountUpdated,
	EventDiscountDeleted,
	EventDiscountWindowTransition,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
