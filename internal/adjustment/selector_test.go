package adjustment

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSelectTermDiscountWithValueSurcharge(t *testing.T) {
	termID := uuid.New()
	valueID := uuid.New()
	termRules := []Rule{{ID: termID, Category: CategoryTerm, Threshold: dec("30"), Percent: dec("5"), Kind: KindDiscount}}
	valueRules := []Rule{{ID: valueID, Category: CategoryValue, Threshold: dec("500.00"), Percent: dec("2"), Kind: KindSurcharge}}

	res, err := Select(dec("1000.00"), Selection{TermRuleID: &termID, ValueRuleID: &valueID}, termRules, valueRules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.DiscountAmount.Equal(dec("50")) {
		t.Fatalf("expected discount 50.00, got %s", res.DiscountAmount)
	}
	if !res.SurchargeAmount.Equal(dec("20")) {
		t.Fatalf("expected surcharge 20.00, got %s", res.SurchargeAmount)
	}
	if !res.Total(dec("1000.00")).Equal(dec("970")) {
		t.Fatalf("expected total 970.00, got %s", res.Total(dec("1000.00")))
	}
}

func TestSelectValueRuleBelowThresholdIsInactive(t *testing.T) {
	valueID := uuid.New()
	valueRules := []Rule{{ID: valueID, Category: CategoryValue, Threshold: dec("500.00"), Percent: dec("3"), Kind: KindDiscount}}

	res, err := Select(dec("499.99"), Selection{ValueRuleID: &valueID}, nil, valueRules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.ValueRuleInactive {
		t.Fatal("expected value rule to be reported inactive")
	}
	if !res.DiscountAmount.IsZero() {
		t.Fatalf("inactive rule must not contribute, got %s", res.DiscountAmount)
	}
}

func TestSelectBothDiscountsStackAdditively(t *testing.T) {
	termID := uuid.New()
	valueID := uuid.New()
	termRules := []Rule{{ID: termID, Category: CategoryTerm, Threshold: dec("60"), Percent: dec("4"), Kind: KindDiscount}}
	valueRules := []Rule{{ID: valueID, Category: CategoryValue, Threshold: dec("100.00"), Percent: dec("6"), Kind: KindDiscount}}

	res, err := Select(dec("200.00"), Selection{TermRuleID: &termID, ValueRuleID: &valueID}, termRules, valueRules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.DiscountAmount.Equal(dec("20")) {
		t.Fatalf("expected stacked discount 20.00, got %s", res.DiscountAmount)
	}
}

func TestSelectNoSelectionIsZero(t *testing.T) {
	res, err := Select(dec("123.45"), Selection{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.DiscountAmount.IsZero() || !res.SurchargeAmount.IsZero() {
		t.Fatalf("expected zero adjustment, got %s / %s", res.DiscountAmount, res.SurchargeAmount)
	}
	if !res.Total(dec("123.45")).Equal(dec("123.45")) {
		t.Fatalf("expected untouched total, got %s", res.Total(dec("123.45")))
	}
}

func TestSelectUnknownRule(t *testing.T) {
	missing := uuid.New()
	_, err := Select(dec("100.00"), Selection{TermRuleID: &missing}, nil, nil)
	if !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestSelectIdempotent(t *testing.T) {
	termID := uuid.New()
	termRules := []Rule{{ID: termID, Category: CategoryTerm, Threshold: dec("15"), Percent: dec("2.5"), Kind: KindSurcharge}}
	sel := Selection{TermRuleID: &termID}

	first, err := Select(dec("840.00"), sel, termRules, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Select(dec("840.00"), sel, termRules, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.SurchargeAmount.Equal(second.SurchargeAmount) || !first.DiscountAmount.Equal(second.DiscountAmount) {
		t.Fatal("identical inputs must yield identical results")
	}
}

func TestTotalFloorsAtZero(t *testing.T) {
	res := Result{DiscountAmount: dec("150.00"), SurchargeAmount: decimal.Zero}
	if !res.Total(dec("100.00")).IsZero() {
		t.Fatalf("expected floored total, got %s", res.Total(dec("100.00")))
	}
}
