package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/pkg/enums"
	"github.com/sikars/sikars-backend/pkg/types"
)

// Order is the immutable snapshot produced when a cart converts. Line items
// and amounts never change after creation; only status fields and their
// timestamps move.
type Order struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    string               `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID         uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	CartID         uuid.UUID            `gorm:"column:cart_id;type:uuid;not null"`
	Status         enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus  enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Currency       enums.Currency       `gorm:"column:currency;type:text;not null;default:'USD'"`
	SubtotalCents  int                  `gorm:"column:subtotal_cents;not null"`
	TaxCents       int                  `gorm:"column:tax_cents;not null"`
	ShippingCents  int                  `gorm:"column:shipping_cents;not null"`
	TotalCents     int                  `gorm:"column:total_cents;not null"`
	ShippingMethod enums.ShippingMethod `gorm:"column:shipping_method;type:text;not null"`
	ShippingAddr   types.Address        `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddr    types.Address        `gorm:"column:billing_address;type:jsonb;serializer:json"`
	CustomerNotes  *string              `gorm:"column:customer_notes"`
	TrackingNumber *string              `gorm:"column:tracking_number"`
	PDFURL         *string              `gorm:"column:pdf_url"`
	QRTrackingURL  *string              `gorm:"column:qr_tracking_url"`
	ConfirmedAt    *time.Time           `gorm:"column:confirmed_at"`
	ShippedAt      *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt    *time.Time           `gorm:"column:delivered_at"`
	CancelledAt    *time.Time           `gorm:"column:cancelled_at"`
	Items          []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments       []Payment            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
