package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/pkg/enums"
)

// Payment records one gateway attempt against an order. Only the card's last
// four digits are ever stored. Attempts where the gateway was unreachable
// leave no row.
type Payment struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	AmountCents          int                  `gorm:"column:amount_cents;not null"`
	Currency             enums.Currency       `gorm:"column:currency;type:text;not null;default:'USD'"`
	Outcome              enums.PaymentOutcome `gorm:"column:outcome;type:text;not null"`
	GatewayTransactionID *string              `gorm:"column:gateway_transaction_id"`
	AuthCode             *string              `gorm:"column:auth_code"`
	CardLastFour         string               `gorm:"column:card_last_four;not null"`
	FailureReason        *string              `gorm:"column:failure_reason"`
	RefundedAt           *time.Time           `gorm:"column:refunded_at"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
