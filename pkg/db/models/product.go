package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/pkg/enums"
)

// Product represents a catalog listing sold as-is, without customization.
type Product struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string         `gorm:"column:sku;not null"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	Currency    enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	PriceCents  int            `gorm:"column:price_cents;not null"`
	StockQty    int            `gorm:"column:stock_qty;not null;default:0"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
