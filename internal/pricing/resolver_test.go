package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolveBasePriceOnly(t *testing.T) {
	p := Product{BasePrice: dec("100.00")}
	res := ResolveUnitPrice(p, dec("3"))
	if !res.UnitPrice.Equal(dec("100.00")) {
		t.Fatalf("expected base price, got %s", res.UnitPrice)
	}
	if res.Applied != AppliedNone {
		t.Fatalf("expected no discount, got %s", res.Applied)
	}
	if !res.OriginalPrice.Equal(dec("100.00")) {
		t.Fatalf("original price must always be the base price")
	}
}

func TestResolveQuantityThreshold(t *testing.T) {
	p := Product{
		BasePrice: dec("100.00"),
		QuantityDiscount: &QuantityDiscount{
			Threshold: dec("10"),
			Kind:      DiscountPercent,
			Value:     dec("20"),
		},
	}
	res := ResolveUnitPrice(p, dec("10"))
	if !res.UnitPrice.Equal(dec("80")) {
		t.Fatalf("expected 80.00 at threshold, got %s", res.UnitPrice)
	}
	if res.Applied != AppliedQuantity {
		t.Fatalf("expected quantity discount, got %s", res.Applied)
	}
	if !res.LineTotal(dec("10")).Equal(dec("800")) {
		t.Fatalf("expected line total 800.00, got %s", res.LineTotal(dec("10")))
	}

	below := ResolveUnitPrice(p, dec("9"))
	if !below.UnitPrice.Equal(dec("100.00")) {
		t.Fatalf("expected base price below threshold, got %s", below.UnitPrice)
	}
	if below.Applied != AppliedNone {
		t.Fatalf("expected no discount below threshold, got %s", below.Applied)
	}
	if !below.LineTotal(dec("9")).Equal(dec("900.00")) {
		t.Fatalf("expected line total 900.00, got %s", below.LineTotal(dec("9")))
	}
}

func TestResolvePromotionAmount(t *testing.T) {
	p := Product{
		BasePrice: dec("50.00"),
		Promotion: &Promotion{Kind: DiscountAmount, Value: dec("12.50")},
	}
	res := ResolveUnitPrice(p, dec("1"))
	if !res.UnitPrice.Equal(dec("37.50")) {
		t.Fatalf("expected 37.50, got %s", res.UnitPrice)
	}
	if res.Applied != AppliedPromotion {
		t.Fatalf("expected promotion, got %s", res.Applied)
	}
}

func TestResolveBothDiscountsLowerWins(t *testing.T) {
	p := Product{
		BasePrice:        dec("200.00"),
		Promotion:        &Promotion{Kind: DiscountPercent, Value: dec("10")},
		QuantityDiscount: &QuantityDiscount{Threshold: dec("5"), Kind: DiscountPercent, Value: dec("25")},
	}
	res := ResolveUnitPrice(p, dec("5"))
	if !res.UnitPrice.Equal(dec("150")) {
		t.Fatalf("expected cheaper quantity price 150.00, got %s", res.UnitPrice)
	}
	if res.Applied != AppliedQuantity {
		t.Fatalf("expected quantity discount, got %s", res.Applied)
	}

	// Below the threshold only the promotion applies.
	promo := ResolveUnitPrice(p, dec("4"))
	if !promo.UnitPrice.Equal(dec("180")) {
		t.Fatalf("expected promotion price 180.00, got %s", promo.UnitPrice)
	}
	if promo.Applied != AppliedPromotion {
		t.Fatalf("expected promotion, got %s", promo.Applied)
	}
}

func TestResolveBothDiscountsPromotionCheaper(t *testing.T) {
	p := Product{
		BasePrice:        dec("100.00"),
		Promotion:        &Promotion{Kind: DiscountPercent, Value: dec("30")},
		QuantityDiscount: &QuantityDiscount{Threshold: dec("2"), Kind: DiscountPercent, Value: dec("10")},
	}
	res := ResolveUnitPrice(p, dec("2"))
	if !res.UnitPrice.Equal(dec("70")) {
		t.Fatalf("expected promotion price 70.00, got %s", res.UnitPrice)
	}
	if res.Applied != AppliedPromotion {
		t.Fatalf("expected promotion to win, got %s", res.Applied)
	}
}

func TestResolveTieFavorsQuantity(t *testing.T) {
	p := Product{
		BasePrice:        dec("100.00"),
		Promotion:        &Promotion{Kind: DiscountPercent, Value: dec("20")},
		QuantityDiscount: &QuantityDiscount{Threshold: dec("3"), Kind: DiscountAmount, Value: dec("20")},
	}
	res := ResolveUnitPrice(p, dec("3"))
	if !res.UnitPrice.Equal(dec("80")) {
		t.Fatalf("expected 80.00, got %s", res.UnitPrice)
	}
	if res.Applied != AppliedQuantity {
		t.Fatalf("tie must favor the quantity discount, got %s", res.Applied)
	}
}

func TestResolveClampsAtZero(t *testing.T) {
	p := Product{
		BasePrice: dec("10.00"),
		Promotion: &Promotion{Kind: DiscountAmount, Value: dec("25.00")},
	}
	res := ResolveUnitPrice(p, dec("1"))
	if !res.UnitPrice.Equal(decimal.Zero) {
		t.Fatalf("expected clamp at zero, got %s", res.UnitPrice)
	}
}

func TestResolveNeverExceedsBase(t *testing.T) {
	// A negative discount value would raise the price; the resolver clamps
	// the result back to the base price.
	p := Product{
		BasePrice: dec("10.00"),
		Promotion: &Promotion{Kind: DiscountAmount, Value: dec("-5.00")},
	}
	res := ResolveUnitPrice(p, dec("1"))
	if !res.UnitPrice.Equal(dec("10.00")) {
		t.Fatalf("unit price must never exceed base, got %s", res.UnitPrice)
	}
}

func TestResolveMonotonicAcrossThreshold(t *testing.T) {
	p := Product{
		BasePrice:        dec("80.00"),
		QuantityDiscount: &QuantityDiscount{Threshold: dec("12"), Kind: DiscountPercent, Value: dec("15")},
	}
	prev := ResolveUnitPrice(p, dec("1")).UnitPrice
	for q := int64(2); q <= 20; q++ {
		cur := ResolveUnitPrice(p, decimal.NewFromInt(q)).UnitPrice
		if cur.GreaterThan(prev) {
			t.Fatalf("price increased from %s to %s at qty %d", prev, cur, q)
		}
		if cur.GreaterThan(p.BasePrice) {
			t.Fatalf("price %s exceeds base at qty %d", cur, q)
		}
		prev = cur
	}
}

func TestResolvePanicsOnNonPositiveQuantity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero quantity")
		}
	}()
	ResolveUnitPrice(Product{BasePrice: dec("1.00")}, decimal.Zero)
}
