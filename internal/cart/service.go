package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/internal/catalog"
	"github.com/sikars/sikars-backend/internal/pricing"
	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
	"github.com/sikars/sikars-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the user's working cart. All unit prices are computed
// server-side when a line is written.
type Service interface {
	ActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddCatalogItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error)
	AddCustomItem(ctx context.Context, userID uuid.UUID, spec types.CustomCigarSpec, quantity int) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	MergeCart(ctx context.Context, userID, sourceCartID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo    Repository
	catalog catalog.Service
	calc    *pricing.Calculator
	tx      txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, catalogSvc catalog.Service, calc *pricing.Calculator, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if calc == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: catalogSvc, calc: calc, tx: tx}, nil
}

func (s *service) ActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cart, err := s.repo.FindActiveCartByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active cart")
	}

	created, err := s.repo.CreateCart(ctx, &models.Cart{
		UserID:   userID,
		Status:   enums.CartStatusActive,
		Currency: enums.CurrencyUSD,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

func (s *service) AddCatalogItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, err := s.ActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Existing catalog lines for the same product merge into one. The unit
	// price comes from the current catalog row, not the stored line.
	for _, item := range cart.Items {
		if item.Kind == enums.LineItemKindCatalog && item.ProductID != nil && *item.ProductID == productID {
			newQty := item.Quantity + quantity
			product, err := s.catalog.SellableProduct(ctx, productID, newQty)
			if err != nil {
				return nil, err
			}
			if err := s.repo.UpdateItemPricing(ctx, item.ID, newQty, product.PriceCents); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
			return s.reload(ctx, cart.ID)
		}
	}

	product, err := s.catalog.SellableProduct(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}

	pid := product.ID
	_, err = s.repo.AddItem(ctx, &models.CartItem{
		CartID:         cart.ID,
		Kind:           enums.LineItemKindCatalog,
		ProductID:      &pid,
		Quantity:       quantity,
		UnitPriceCents: product.PriceCents,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return s.reload(ctx, cart.ID)
}

func (s *service) AddCustomItem(ctx context.Context, userID uuid.UUID, spec types.CustomCigarSpec, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if spec.BandText != nil && len(*spec.BandText) > 18 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "band text must be 18 characters or fewer")
	}
	if spec.Engraving != nil && len(*spec.Engraving) > 20 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "engraving must be 20 characters or fewer")
	}

	options, err := s.catalog.ResolveCustomSpec(ctx, spec)
	if err != nil {
		return nil, err
	}

	modifiers := make([]int, 0, len(options))
	for _, option := range options {
		modifiers = append(modifiers, option.PriceModifierCents)
	}
	unitPrice := s.calc.CustomUnitPrice(modifiers...)

	cart, err := s.ActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Custom builds always get their own line, even when the selections are
	// identical. Each one is a distinct made-to-order item.
	specCopy := spec
	_, err = s.repo.AddItem(ctx, &models.CartItem{
		CartID:         cart.ID,
		Kind:           enums.LineItemKindCustom,
		Quantity:       quantity,
		UnitPriceCents: unitPrice,
		Customization:  &specCopy,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return s.reload(ctx, cart.ID)
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if item.Kind == enums.LineItemKindCatalog && item.ProductID != nil {
		if _, err := s.catalog.SellableProduct(ctx, *item.ProductID, quantity); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item quantity")
	}
	return s.reload(ctx, cart.ID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return s.reload(ctx, cart.ID)
}

// MergeCart folds a guest cart's items into the user's active cart and marks
// the source abandoned. Matching catalog lines combine quantities; custom
// lines move over as-is.
func (s *service) MergeCart(ctx context.Context, userID, sourceCartID uuid.UUID) (*models.Cart, error) {
	if sourceCartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source cart id required")
	}

	target, err := s.ActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.ID == sourceCartID {
		return target, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		source, err := repo.FindCart(ctx, sourceCartID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "source cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load source cart")
		}
		if source.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "source cart is no longer active")
		}

		// Matching lines fold into the target; the rest move over wholesale.
		for _, sourceItem := range source.Items {
			for _, targetItem := range target.Items {
				if !linesMatch(sourceItem, targetItem) {
					continue
				}
				if err := repo.UpdateItemQuantity(ctx, targetItem.ID, targetItem.Quantity+sourceItem.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item quantity")
				}
				if err := repo.DeleteItem(ctx, sourceItem.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove merged source item")
				}
				break
			}
		}

		if err := repo.MoveItems(ctx, source.ID, target.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move cart items")
		}
		if err := repo.MarkAbandoned(ctx, source.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark source cart abandoned")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, target.ID)
}

func (s *service) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, *models.CartItem, error) {
	if itemID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	cart, err := s.ActiveCart(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if item.CartID != cart.ID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return cart, item, nil
}

func (s *service) reload(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindCart(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return cart, nil
}

// linesMatch reports whether a source line can fold into a target line
// during a merge. Only catalog lines for the same product qualify; custom
// lines never fold.
func linesMatch(a, b models.CartItem) bool {
	if a.Kind != enums.LineItemKindCatalog || b.Kind != enums.LineItemKindCatalog {
		return false
	}
	return a.ProductID != nil && b.ProductID != nil && *a.ProductID == *b.ProductID
}
