package pricing

import (
	"testing"

	"github.com/sikars/sikars-backend/pkg/config"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
)

func testConfig() config.PricingConfig {
	return config.PricingConfig{
		TaxRate:                "0.08",
		ShippingStandardCents:  999,
		ShippingExpressCents:   2499,
		CustomBasePriceCents:   3000,
		MaxOrderTotalCents:     1000000,
		OrderNumberMaxAttempts: 5,
	}
}

func TestCustomUnitPrice(t *testing.T) {
	calc := NewCalculator(testConfig())

	// robusto + maduro + medium + classic band + classic box
	got := calc.CustomUnitPrice(1000, 100, 200, 200, 2000)
	if got != 6500 {
		t.Fatalf("expected 6500 got %d", got)
	}

	if got := calc.CustomUnitPrice(); got != 3000 {
		t.Fatalf("base price without modifiers should be 3000, got %d", got)
	}
}

func TestTotalsStandardShipping(t *testing.T) {
	calc := NewCalculator(testConfig())

	totals, err := calc.Totals([]Line{{UnitPriceCents: 6500, Quantity: 2}}, enums.ShippingMethodStandard)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.SubtotalCents != 13000 {
		t.Fatalf("expected subtotal 13000 got %d", totals.SubtotalCents)
	}
	if totals.TaxCents != 1040 {
		t.Fatalf("expected tax 1040 got %d", totals.TaxCents)
	}
	if totals.ShippingCents != 999 {
		t.Fatalf("expected shipping 999 got %d", totals.ShippingCents)
	}
	if totals.TotalCents != 15039 {
		t.Fatalf("expected total 15039 got %d", totals.TotalCents)
	}
}

func TestTotalsExpressShipping(t *testing.T) {
	calc := NewCalculator(testConfig())

	totals, err := calc.Totals([]Line{{UnitPriceCents: 2500, Quantity: 1}}, enums.ShippingMethodExpress)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.ShippingCents != 2499 {
		t.Fatalf("expected express shipping 2499 got %d", totals.ShippingCents)
	}
	if totals.TotalCents != 2500+200+2499 {
		t.Fatalf("unexpected total %d", totals.TotalCents)
	}
}

func TestTaxRounding(t *testing.T) {
	calc := NewCalculator(testConfig())

	// 131 * 0.08 = 10.48, rounds to 10
	if got := calc.TaxCents(131); got != 10 {
		t.Fatalf("expected tax 10 got %d", got)
	}
	// 144 * 0.08 = 11.52, rounds to 12
	if got := calc.TaxCents(144); got != 12 {
		t.Fatalf("expected tax 12 got %d", got)
	}
	if got := calc.TaxCents(0); got != 0 {
		t.Fatalf("expected zero tax got %d", got)
	}
}

func TestTotalsCeiling(t *testing.T) {
	calc := NewCalculator(testConfig())

	_, err := calc.Totals([]Line{{UnitPriceCents: 500000, Quantity: 2}}, enums.ShippingMethodStandard)
	if err == nil {
		t.Fatal("expected ceiling violation")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Code() != pkgerrors.CodePriceOutOfRange {
		t.Fatalf("expected price out of range code, got %s", appErr.Code())
	}
}

func TestTotalsInvalidInputs(t *testing.T) {
	calc := NewCalculator(testConfig())

	if _, err := calc.Totals([]Line{{UnitPriceCents: 100, Quantity: 0}}, enums.ShippingMethodStandard); err == nil {
		t.Fatal("expected error for zero quantity")
	}
	if _, err := calc.Totals([]Line{{UnitPriceCents: 100, Quantity: 1}}, "overnight"); err == nil {
		t.Fatal("expected error for unknown shipping method")
	}
}
