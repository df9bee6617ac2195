package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/pkg/enums"
)

// Cart is a user-scoped working cart. Exactly one active cart exists per
// user; conversion to an order flips status via a compare-and-swap update.
type Cart struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID        `gorm:"column:user_id;type:uuid;not null"`
	Status      enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Currency    enums.Currency   `gorm:"column:currency;type:text;not null;default:'USD'"`
	ConvertedAt *time.Time       `gorm:"column:converted_at"`
	Items       []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
