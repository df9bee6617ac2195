package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/pkg/enums"
	"github.com/sikars/sikars-backend/pkg/types"
)

// OrderItem is a priced snapshot of a cart line at conversion time. Name and
// unit price are copied from the source so later catalog edits do not change
// past orders.
type OrderItem struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	Kind           enums.LineItemKind     `gorm:"column:kind;type:text;not null"`
	ProductID      *uuid.UUID             `gorm:"column:product_id;type:uuid"`
	Name           string                 `gorm:"column:name;not null"`
	Quantity       int                    `gorm:"column:quantity;not null"`
	UnitPriceCents int                    `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int                    `gorm:"column:line_total_cents;not null"`
	Customization  *types.CustomCigarSpec `gorm:"column:customization;type:jsonb;serializer:json"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}
