package orders

import (
	"github.com/sikars/sikars-backend/pkg/enums"
)

// transitions is the explicit order lifecycle table. Confirmation only
// happens through payment approval; fulfillment moves forward one step at a
// time; cancellation is allowed until fulfillment starts.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusCompleted},
	enums.OrderStatusCompleted:  {},
	enums.OrderStatusCancelled:  {},
}

// stampColumns records, per destination status, the timestamp column written
// when an order enters that status. Every writer of a lifecycle edge goes
// through StampColumn so the stamps live with the transition table.
var stampColumns = map[enums.OrderStatus]string{
	enums.OrderStatusConfirmed:  "confirmed_at",
	enums.OrderStatusProcessing: "shipped_at",
	enums.OrderStatusCompleted:  "delivered_at",
	enums.OrderStatusCancelled:  "cancelled_at",
}

// StampColumn returns the timestamp column set when an order enters the
// given status, and whether that status records one.
func StampColumn(to enums.OrderStatus) (string, bool) {
	column, ok := stampColumns[to]
	return column, ok
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in the given status may still be
// cancelled.
func Cancellable(status enums.OrderStatus) bool {
	return CanTransition(status, enums.OrderStatusCancelled)
}
