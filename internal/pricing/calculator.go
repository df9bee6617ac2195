package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/sikars/sikars-backend/pkg/config"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
)

// Line is a priced quantity used for order totals.
type Line struct {
	UnitPriceCents int
	Quantity       int
}

// Totals carries the amounts snapshotted onto an order.
type Totals struct {
	SubtotalCents int
	TaxCents      int
	ShippingCents int
	TotalCents    int
}

// Calculator derives all money amounts server-side. Client-provided prices
// are never trusted.
type Calculator struct {
	cfg     config.PricingConfig
	taxRate decimal.Decimal
}

// NewCalculator builds a calculator from the pricing configuration. The tax
// rate string is validated during config load.
func NewCalculator(cfg config.PricingConfig) *Calculator {
	return &Calculator{cfg: cfg, taxRate: cfg.TaxRateDecimal()}
}

// CustomUnitPrice sums the base custom cigar price with the selected option
// modifiers.
func (c *Calculator) CustomUnitPrice(modifierCents ...int) int {
	price := c.cfg.CustomBasePriceCents
	for _, m := range modifierCents {
		price += m
	}
	return price
}

// TaxCents applies the configured rate to the subtotal, rounding half away
// from zero to whole cents.
func (c *Calculator) TaxCents(subtotalCents int) int {
	tax := decimal.NewFromInt(int64(subtotalCents)).Mul(c.taxRate).Round(0)
	return int(tax.IntPart())
}

// ShippingCents maps the shipping method to its flat rate.
func (c *Calculator) ShippingCents(method enums.ShippingMethod) (int, error) {
	switch method {
	case enums.ShippingMethodStandard:
		return c.cfg.ShippingStandardCents, nil
	case enums.ShippingMethodExpress:
		return c.cfg.ShippingExpressCents, nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping method")
	}
}

// Totals computes subtotal, tax, shipping and the grand total, enforcing the
// configured order ceiling.
func (c *Calculator) Totals(lines []Line, method enums.ShippingMethod) (*Totals, error) {
	subtotal := 0
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line unit price must not be negative")
		}
		subtotal += line.UnitPriceCents * line.Quantity
	}

	shipping, err := c.ShippingCents(method)
	if err != nil {
		return nil, err
	}

	tax := c.TaxCents(subtotal)
	total := subtotal + tax + shipping

	if total > c.cfg.MaxOrderTotalCents {
		return nil, pkgerrors.New(pkgerrors.CodePriceOutOfRange, "order total exceeds maximum").
			WithDetails(map[string]any{
				"total_cents": total,
				"max_cents":   c.cfg.MaxOrderTotalCents,
			})
	}

	return &Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		ShippingCents: shipping,
		TotalCents:    total,
	}, nil
}
