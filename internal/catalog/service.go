package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
	"github.com/sikars/sikars-backend/pkg/types"
)

// Service exposes catalog reads plus the option resolution used when pricing
// custom cigars.
type Service interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListOptions(ctx context.Context) (map[enums.CustomizationKind][]models.CustomizationOption, error)
	SellableProduct(ctx context.Context, id uuid.UUID, quantity int) (*models.Product, error)
	ResolveCustomSpec(ctx context.Context, spec types.CustomCigarSpec) ([]models.CustomizationOption, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListActiveProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (s *service) ListOptions(ctx context.Context) (map[enums.CustomizationKind][]models.CustomizationOption, error) {
	options, err := s.repo.ListActiveOptions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customization options")
	}
	grouped := make(map[enums.CustomizationKind][]models.CustomizationOption, 5)
	for _, option := range options {
		grouped[option.Kind] = append(grouped[option.Kind], option)
	}
	return grouped, nil
}

// SellableProduct loads a product and verifies it can be added to a cart at
// the requested quantity.
func (s *service) SellableProduct(ctx context.Context, id uuid.UUID, quantity int) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeItemUnavailable, "product is not available").
			WithDetails(map[string]any{"product_id": product.ID.String()})
	}
	if product.StockQty < quantity {
		return nil, pkgerrors.New(pkgerrors.CodeItemUnavailable, "insufficient stock").
			WithDetails(map[string]any{
				"product_id": product.ID.String(),
				"stock_qty":  product.StockQty,
				"requested":  quantity,
			})
	}
	return product, nil
}

// ResolveCustomSpec maps each selected value to its active catalog option.
// Unknown or inactive selections fail validation.
func (s *service) ResolveCustomSpec(ctx context.Context, spec types.CustomCigarSpec) ([]models.CustomizationOption, error) {
	selections := []struct {
		kind  enums.CustomizationKind
		value string
	}{
		{enums.CustomizationKindSize, spec.Size},
		{enums.CustomizationKindBinder, spec.Binder},
		{enums.CustomizationKindFlavor, spec.Flavor},
		{enums.CustomizationKindBandStyle, spec.BandStyle},
		{enums.CustomizationKindBoxType, spec.BoxType},
	}

	resolved := make([]models.CustomizationOption, 0, len(selections))
	for _, sel := range selections {
		option, err := s.repo.FindActiveOption(ctx, sel.kind, sel.value)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s selection %q", sel.kind, sel.value))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve customization option")
		}
		resolved = append(resolved, *option)
	}
	return resolved, nil
}
