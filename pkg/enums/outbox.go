package enums

// EventType names the domain events written to the outbox and published to
// Pub/Sub. Consumers switch on these values.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderPaid          EventType = "order.paid"
	EventOrderCancelled     EventType = "order.cancelled"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventPaymentRefunded    EventType = "payment.refunded"
)

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	switch e {
	case EventOrderCreated,
		EventOrderPaid,
		EventOrderCancelled,
		EventOrderStatusChanged,
		EventPaymentRefunded:
		return true
	}
	return false
}

// AggregateType names the aggregate an outbox event belongs to.
type AggregateType string

const (
	AggregateOrder   AggregateType = "order"
	AggregateCart    AggregateType = "cart"
	AggregatePayment AggregateType = "payment"
)

// String implements fmt.Stringer.
func (a AggregateType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AggregateType.
func (a AggregateType) IsValid() bool {
	switch a {
	case AggregateOrder, AggregateCart, AggregatePayment:
		return true
	}
	return false
}

// OutboxStatus tracks delivery state of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// String implements fmt.Stringer.
func (o OutboxStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxStatus.
func (o OutboxStatus) IsValid() bool {
	switch o {
	case OutboxStatusPending, OutboxStatusPublished, OutboxStatusFailed:
		return true
	}
	return false
}
