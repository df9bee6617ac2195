package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
)

// Repository defines persistence operations for the product and option catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListActiveProducts(ctx context.Context) ([]models.Product, error)
	FindActiveOption(ctx context.Context, kind enums.CustomizationKind, value string) (*models.CustomizationOption, error)
	ListActiveOptions(ctx context.Context) ([]models.CustomizationOption, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindActiveOption(ctx context.Context, kind enums.CustomizationKind, value string) (*models.CustomizationOption, error) {
	var option models.CustomizationOption
	err := r.db.WithContext(ctx).
		Where("kind = ? AND value = ? AND is_active = ?", kind, value, true).
		First(&option).Error
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *repository) ListActiveOptions(ctx context.Context) ([]models.CustomizationOption, error) {
	var options []models.CustomizationOption
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("kind ASC").
		Order("value ASC").
		Find(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}
