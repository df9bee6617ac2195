package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/pkg/enums"
	"github.com/sikars/sikars-backend/pkg/types"
)

// CartItem is one line in a cart. Catalog lines reference a product;
// custom lines carry the full cigar spec. UnitPriceCents is always computed
// server-side at write time.
type CartItem struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID              `gorm:"column:cart_id;type:uuid;not null"`
	Kind           enums.LineItemKind     `gorm:"column:kind;type:text;not null"`
	ProductID      *uuid.UUID             `gorm:"column:product_id;type:uuid"`
	Quantity       int                    `gorm:"column:quantity;not null"`
	UnitPriceCents int                    `gorm:"column:unit_price_cents;not null"`
	Customization  *types.CustomCigarSpec `gorm:"column:customization;type:jsonb;serializer:json"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
