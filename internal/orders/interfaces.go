package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
	"github.com/sikars/sikars-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListAllOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	MarkPaid(ctx context.Context, orderID uuid.UUID) (bool, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus) (bool, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error
}
