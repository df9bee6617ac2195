package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
)

// Repository defines persistence operations for carts and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCart(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindCart(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindActiveCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	UpdateItemPricing(ctx context.Context, itemID uuid.UUID, quantity, unitPriceCents int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	MoveItems(ctx context.Context, fromCartID, toCartID uuid.UUID) error
	ConvertActiveCart(ctx context.Context, cartID uuid.UUID) (bool, error)
	MarkAbandoned(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCart(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *repository) FindCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC")
		}).
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindActiveCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC")
		}).
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity).Error
}

// UpdateItemPricing rewrites a line's quantity and unit price together, used
// when a merge re-resolves the price from the catalog.
func (r *repository) UpdateItemPricing(ctx context.Context, itemID uuid.UUID, quantity, unitPriceCents int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"quantity":         quantity,
			"unit_price_cents": unitPriceCents,
		}).Error
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) MoveItems(ctx context.Context, fromCartID, toCartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ?", fromCartID).
		Update("cart_id", toCartID).Error
}

// ConvertActiveCart flips an active cart to converted with a compare-and-swap
// so concurrent checkouts race safely. Returns false when another request won.
func (r *repository) ConvertActiveCart(ctx context.Context, cartID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkAbandoned(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Update("status", enums.CartStatusAbandoned).Error
}
