package enums

import "slices"

// OutboxAggregateType names the row an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{AggregateOrder, AggregatePayment}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(validAggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum("aggregate type", value, validAggregateTypes)
}

// OutboxEventType is the event_type column and selects the Pub/Sub topic.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order_created"
	EventOrderAbandoned       OutboxEventType = "order_abandoned"
	EventPaymentStatusChanged OutboxEventType = "payment_status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderAbandoned,
	EventPaymentStatusChanged,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(validOutboxEventTypes, e) }

// Aggregate is the aggregate type every event of this kind is emitted for.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	if e == EventPaymentStatusChanged {
		return AggregatePayment
	}
	return AggregateOrder
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum("event type", value, validOutboxEventTypes)
}
