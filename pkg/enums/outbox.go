package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of payment_outbox_events.
type OutboxAggregateType string

const (
	AggregatePaymentIntent OutboxAggregateType = "payment_intent"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePaymentIntent,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType names an event published to the payments topic.
type OutboxEventType string

const (
	EventPaymentIntentSucceeded  OutboxEventType = "payment_intent.succeeded"
	EventPaymentIntentFailed     OutboxEventType = "payment_intent.failed"
	EventPaymentIntentDispatched OutboxEventType = "payment_intent.dispatched"
	EventPaymentIntentAbandoned  OutboxEventType = "payment_intent.abandoned"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPaymentIntentSucceeded,
	EventPaymentIntentFailed,
	EventPaymentIntentDispatched,
	EventPaymentIntentAbandoned,
}

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
