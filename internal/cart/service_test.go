package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/internal/catalog"
	"github.com/sikars/sikars-backend/internal/pricing"
	"github.com/sikars/sikars-backend/pkg/config"
	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
	"github.com/sikars/sikars-backend/pkg/types"
)

type stubRepo struct {
	carts map[uuid.UUID]*models.Cart
	items map[uuid.UUID]*models.CartItem
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		carts: make(map[uuid.UUID]*models.Cart),
		items: make(map[uuid.UUID]*models.CartItem),
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) CreateCart(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	cart.ID = uuid.New()
	s.carts[cart.ID] = cart
	return cart, nil
}

func (s *stubRepo) FindCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, ok := s.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *cart
	copied.Items = nil
	for _, item := range s.items {
		if item.CartID == id {
			copied.Items = append(copied.Items, *item)
		}
	}
	return &copied, nil
}

func (s *stubRepo) FindActiveCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	for id, cart := range s.carts {
		if cart.UserID == userID && cart.Status == enums.CartStatusActive {
			return s.FindCart(ctx, id)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	item.ID = uuid.New()
	s.items[item.ID] = item
	return item, nil
}

func (s *stubRepo) FindItem(ctx context.Context, itemID uuid.UUID) (*models.CartItem, error) {
	item, ok := s.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (s *stubRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	if item, ok := s.items[itemID]; ok {
		item.Quantity = quantity
	}
	return nil
}

func (s *stubRepo) UpdateItemPricing(ctx context.Context, itemID uuid.UUID, quantity, unitPriceCents int) error {
	if item, ok := s.items[itemID]; ok {
		item.Quantity = quantity
		item.UnitPriceCents = unitPriceCents
	}
	return nil
}

func (s *stubRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	delete(s.items, itemID)
	return nil
}

func (s *stubRepo) MoveItems(ctx context.Context, fromCartID, toCartID uuid.UUID) error {
	for _, item := range s.items {
		if item.CartID == fromCartID {
			item.CartID = toCartID
		}
	}
	return nil
}

func (s *stubRepo) ConvertActiveCart(ctx context.Context, cartID uuid.UUID) (bool, error) {
	cart, ok := s.carts[cartID]
	if !ok || cart.Status != enums.CartStatusActive {
		return false, nil
	}
	cart.Status = enums.CartStatusConverted
	return true, nil
}

func (s *stubRepo) MarkAbandoned(ctx context.Context, cartID uuid.UUID) error {
	if cart, ok := s.carts[cartID]; ok && cart.Status == enums.CartStatusActive {
		cart.Status = enums.CartStatusAbandoned
	}
	return nil
}

type stubCatalog struct {
	products map[uuid.UUID]*models.Product
	options  map[string]*models.CustomizationOption
}

var _ catalog.Service = (*stubCatalog)(nil)

func newStubCatalog() *stubCatalog {
	options := map[string]*models.CustomizationOption{}
	seed := []struct {
		kind  enums.CustomizationKind
		value string
		cents int
	}{
		{enums.CustomizationKindSize, "robusto", 1000},
		{enums.CustomizationKindBinder, "maduro", 100},
		{enums.CustomizationKindFlavor, "medium", 200},
		{enums.CustomizationKindBandStyle, "classic", 200},
		{enums.CustomizationKindBoxType, "classic", 2000},
	}
	for _, o := range seed {
		options[string(o.kind)+":"+o.value] = &models.CustomizationOption{
			ID:                 uuid.New(),
			Kind:               o.kind,
			Value:              o.value,
			PriceModifierCents: o.cents,
			IsActive:           true,
		}
	}
	return &stubCatalog{
		products: make(map[uuid.UUID]*models.Product),
		options:  options,
	}
}

func (s *stubCatalog) ListProducts(ctx context.Context) ([]models.Product, error) { return nil, nil }

func (s *stubCatalog) ListOptions(ctx context.Context) (map[enums.CustomizationKind][]models.CustomizationOption, error) {
	return nil, nil
}

func (s *stubCatalog) SellableProduct(ctx context.Context, id uuid.UUID, quantity int) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if product.StockQty < quantity {
		return nil, pkgerrors.New(pkgerrors.CodeItemUnavailable, "insufficient stock")
	}
	return product, nil
}

func (s *stubCatalog) ResolveCustomSpec(ctx context.Context, spec types.CustomCigarSpec) ([]models.CustomizationOption, error) {
	keys := []string{
		"size:" + spec.Size,
		"binder:" + spec.Binder,
		"flavor:" + spec.Flavor,
		"band_style:" + spec.BandStyle,
		"box_type:" + spec.BoxType,
	}
	resolved := make([]models.CustomizationOption, 0, len(keys))
	for _, key := range keys {
		option, ok := s.options[key]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid selection "+key)
		}
		resolved = append(resolved, *option)
	}
	return resolved, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newTestService(t *testing.T) (Service, *stubRepo, *stubCatalog) {
	t.Helper()
	repo := newStubRepo()
	cat := newStubCatalog()
	calc := pricing.NewCalculator(config.PricingConfig{
		TaxRate:               "0.08",
		ShippingStandardCents: 999,
		ShippingExpressCents:  2499,
		CustomBasePriceCents:  3000,
		MaxOrderTotalCents:    1000000,
	})
	svc, err := NewService(repo, cat, calc, stubTxRunner{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, cat
}

func testSpec() types.CustomCigarSpec {
	return types.CustomCigarSpec{
		Size:      "robusto",
		Binder:    "maduro",
		Flavor:    "medium",
		BandStyle: "classic",
		BoxType:   "classic",
	}
}

func TestActiveCartCreatesOnce(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.ActiveCart(ctx, userID)
	if err != nil {
		t.Fatalf("active cart: %v", err)
	}
	second, err := svc.ActiveCart(ctx, userID)
	if err != nil {
		t.Fatalf("active cart again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("expected the same active cart on repeat calls")
	}
	if len(repo.carts) != 1 {
		t.Fatalf("expected one cart, got %d", len(repo.carts))
	}
}

func TestAddCatalogItemMergesDuplicateLines(t *testing.T) {
	svc, _, cat := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	productID := uuid.New()
	cat.products[productID] = &models.Product{
		ID:         productID,
		Name:       "Toro Sampler",
		PriceCents: 2500,
		StockQty:   10,
		IsActive:   true,
	}

	cart, err := svc.AddCatalogItem(ctx, userID, productID, 2)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(cart.Items))
	}
	if cart.Items[0].UnitPriceCents != 2500 {
		t.Fatalf("expected server-side price 2500, got %d", cart.Items[0].UnitPriceCents)
	}

	cart, err = svc.AddCatalogItem(ctx, userID, productID, 3)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("duplicate product should merge, got %d lines", len(cart.Items))
	}
	if cart.Items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", cart.Items[0].Quantity)
	}
}

func TestAddCatalogItemMergeRepricesFromCatalog(t *testing.T) {
	svc, _, cat := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	productID := uuid.New()
	cat.products[productID] = &models.Product{
		ID:         productID,
		Name:       "Toro Sampler",
		PriceCents: 1000,
		StockQty:   10,
		IsActive:   true,
	}

	if _, err := svc.AddCatalogItem(ctx, userID, productID, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}

	// Catalog price changes between adds; the merged line must pick up the
	// current price, not keep the stored one.
	cat.products[productID].PriceCents = 2000

	cart, err := svc.AddCatalogItem(ctx, userID, productID, 1)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", cart.Items[0].Quantity)
	}
	if cart.Items[0].UnitPriceCents != 2000 {
		t.Fatalf("expected refreshed price 2000, got %d", cart.Items[0].UnitPriceCents)
	}
}

func TestAddCatalogItemStockExceeded(t *testing.T) {
	svc, _, cat := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	productID := uuid.New()
	cat.products[productID] = &models.Product{ID: productID, PriceCents: 2500, StockQty: 1, IsActive: true}

	if _, err := svc.AddCatalogItem(ctx, userID, productID, 2); err == nil {
		t.Fatal("expected stock error")
	} else {
		if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeItemUnavailable {
			t.Fatalf("expected item unavailable, got %v", err)
		}
	}
}

func TestAddCustomItemComputesUnitPrice(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	cart, err := svc.AddCustomItem(ctx, userID, testSpec(), 2)
	if err != nil {
		t.Fatalf("add custom item: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(cart.Items))
	}
	// 3000 base + 1000 + 100 + 200 + 200 + 2000
	if cart.Items[0].UnitPriceCents != 6500 {
		t.Fatalf("expected unit price 6500, got %d", cart.Items[0].UnitPriceCents)
	}
	if cart.Items[0].Kind != enums.LineItemKindCustom {
		t.Fatalf("unexpected kind %s", cart.Items[0].Kind)
	}
}

func TestAddCustomItemKeepsIdenticalBuildsSeparate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.AddCustomItem(ctx, userID, testSpec(), 1); err != nil {
		t.Fatalf("add custom item: %v", err)
	}
	cart, err := svc.AddCustomItem(ctx, userID, testSpec(), 2)
	if err != nil {
		t.Fatalf("add custom item again: %v", err)
	}

	// Each custom build is its own made-to-order line, even when the
	// selections are identical.
	if len(cart.Items) != 2 {
		t.Fatalf("expected two separate lines, got %d", len(cart.Items))
	}
	quantities := map[int]bool{}
	for _, item := range cart.Items {
		if item.Kind != enums.LineItemKindCustom {
			t.Fatalf("unexpected kind %s", item.Kind)
		}
		if item.UnitPriceCents != 6500 {
			t.Fatalf("expected unit price 6500, got %d", item.UnitPriceCents)
		}
		quantities[item.Quantity] = true
	}
	if !quantities[1] || !quantities[2] {
		t.Fatalf("expected quantities 1 and 2 preserved, got %+v", cart.Items)
	}
}

func TestAddCustomItemPersonalizationLimits(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	long := "this text is way past the limit"
	spec := testSpec()
	spec.BandText = &long
	if _, err := svc.AddCustomItem(ctx, userID, spec, 1); err == nil {
		t.Fatal("expected band text length error")
	}

	spec = testSpec()
	spec.Engraving = &long
	if _, err := svc.AddCustomItem(ctx, userID, spec, 1); err == nil {
		t.Fatal("expected engraving length error")
	}
}

func TestRemoveItemRequiresOwnership(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	otherID := uuid.New()

	otherCart, err := svc.AddCustomItem(ctx, otherID, testSpec(), 1)
	if err != nil {
		t.Fatalf("seed other cart: %v", err)
	}

	if _, err := svc.RemoveItem(ctx, userID, otherCart.Items[0].ID); err == nil {
		t.Fatal("expected not found for foreign item")
	} else {
		if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if len(repo.items) != 1 {
		t.Fatal("foreign item must not be deleted")
	}
}

func TestMergeCartCombinesAndAbandonsSource(t *testing.T) {
	svc, repo, cat := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	guestID := uuid.New()

	productID := uuid.New()
	cat.products[productID] = &models.Product{ID: productID, PriceCents: 2500, StockQty: 10, IsActive: true}

	if _, err := svc.AddCatalogItem(ctx, userID, productID, 1); err != nil {
		t.Fatalf("seed user cart: %v", err)
	}
	if _, err := svc.AddCustomItem(ctx, userID, testSpec(), 1); err != nil {
		t.Fatalf("seed user custom item: %v", err)
	}
	guestCart, err := svc.AddCatalogItem(ctx, guestID, productID, 2)
	if err != nil {
		t.Fatalf("seed guest cart: %v", err)
	}
	if _, err := svc.AddCustomItem(ctx, guestID, testSpec(), 1); err != nil {
		t.Fatalf("seed guest custom item: %v", err)
	}

	merged, err := svc.MergeCart(ctx, userID, guestCart.ID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	// Catalog lines fold together; the two identical custom builds stay as
	// separate lines.
	if len(merged.Items) != 3 {
		t.Fatalf("expected three lines after merge, got %d", len(merged.Items))
	}
	customLines := 0
	for _, item := range merged.Items {
		switch item.Kind {
		case enums.LineItemKindCatalog:
			if item.Quantity != 3 {
				t.Fatalf("expected merged catalog quantity 3, got %d", item.Quantity)
			}
		case enums.LineItemKindCustom:
			customLines++
		}
	}
	if customLines != 2 {
		t.Fatalf("expected 2 custom lines, got %d", customLines)
	}
	if repo.carts[guestCart.ID].Status != enums.CartStatusAbandoned {
		t.Fatalf("expected source cart abandoned, got %s", repo.carts[guestCart.ID].Status)
	}
}
