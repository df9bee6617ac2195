package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/pkg/enums"
)

// CustomizationOption is one selectable value within an option group, with
// the price modifier it adds on top of the custom cigar base price.
type CustomizationOption struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind               enums.CustomizationKind `gorm:"column:kind;type:text;not null"`
	Value              string                  `gorm:"column:value;not null"`
	DisplayName        string                  `gorm:"column:display_name;not null"`
	PriceModifierCents int                     `gorm:"column:price_modifier_cents;not null;default:0"`
	IsActive           bool                    `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
