package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/pkg/enums"
)

// OrderCreatedEvent signals a cart converted into an order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	CartID      uuid.UUID `json:"cart_id"`
	TotalCents  int       `json:"total_cents"`
	ItemCount   int       `json:"item_count"`
}

// OrderPaidEvent is emitted when a gateway approval is applied to an order.
type OrderPaidEvent struct {
	OrderID              uuid.UUID `json:"order_id"`
	OrderNumber          string    `json:"order_number"`
	PaymentID            uuid.UUID `json:"payment_id"`
	GatewayTransactionID string    `json:"gateway_transaction_id"`
	AmountCents          int       `json:"amount_cents"`
}

// OrderCancelledEvent is emitted when a customer or admin cancels an order.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	CancelledAt time.Time         `json:"cancelled_at"`
}

// OrderStatusChangedEvent covers admin-driven fulfillment transitions.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	FromStatus     enums.OrderStatus `json:"from_status"`
	ToStatus       enums.OrderStatus `json:"to_status"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
}

// PaymentRefundedEvent is emitted when an admin refund succeeds at the gateway.
type PaymentRefundedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	OrderNumber       string    `json:"order_number"`
	PaymentID         uuid.UUID `json:"payment_id"`
	RefundID          uuid.UUID `json:"refund_id"`
	AmountCents       int       `json:"amount_cents"`
	GatewayRefundTxID string    `json:"gateway_refund_transaction_id"`
}
