package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/pkg/enums"
	"github.com/sikars/sikars-backend/pkg/types"
)

// CreateOrderInput carries everything needed to convert a cart into an order.
type CreateOrderInput struct {
	UserID          uuid.UUID
	ActorRole       string
	ShippingMethod  enums.ShippingMethod
	ShippingAddress types.Address
	BillingAddress  types.Address
	CustomerNotes   *string
}

// CancelOrderInput identifies the order plus the actor cancelling it.
type CancelOrderInput struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	ActorRole string
	IsAdmin   bool
}

// StatusUpdateInput is the admin fulfillment transition request.
type StatusUpdateInput struct {
	OrderID     uuid.UUID
	ToStatus    enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   string
}

// AttachDocumentsInput carries generated artifact links back onto an order.
type AttachDocumentsInput struct {
	OrderID       uuid.UUID
	PDFURL        *string
	QRTrackingURL *string
	ActorUserID   uuid.UUID
	ActorRole     string
}

// OrderFilters describe the inputs supported by the order lists.
type OrderFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// OrderSummary exposes the aggregated fields returned in order lists.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	CreatedAt     time.Time           `json:"created_at"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalCents    int                 `json:"total_cents"`
	TotalItems    int                 `json:"total_items"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// DocumentLine is one priced row on an invoice or packing slip.
type DocumentLine struct {
	Name           string                 `json:"name"`
	Kind           enums.LineItemKind     `json:"kind"`
	Quantity       int                    `json:"quantity"`
	UnitPriceCents int                    `json:"unit_price_cents"`
	LineTotalCents int                    `json:"line_total_cents"`
	Customization  *types.CustomCigarSpec `json:"customization,omitempty"`
}

// OrderDocuments is the invoice plus packing data generated for fulfillment.
type OrderDocuments struct {
	OrderNumber     string         `json:"order_number"`
	IssuedAt        time.Time      `json:"issued_at"`
	ShippingAddress types.Address  `json:"shipping_address"`
	TrackingNumber  *string        `json:"tracking_number,omitempty"`
	Lines           []DocumentLine `json:"lines"`
	SubtotalCents   int            `json:"subtotal_cents"`
	TaxCents        int            `json:"tax_cents"`
	ShippingCents   int            `json:"shipping_cents"`
	TotalCents      int            `json:"total_cents"`
}
