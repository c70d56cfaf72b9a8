// Package adjustment selects and applies order level discount and surcharge
// rules negotiated per customer: one rule keyed by payment term length and
// one keyed by a minimum order value.
package adjustment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrRuleNotFound is returned when a selected rule id is not among the
// customer's configured rules.
var ErrRuleNotFound = errors.New("adjustment rule not found")

// RuleKind routes a rule's contribution to the discount or surcharge bucket.
type RuleKind string

const (
	// KindDiscount subtracts from the order total.
	KindDiscount RuleKind = "discount"
	// KindSurcharge adds to the order total.
	KindSurcharge RuleKind = "surcharge"
)

// Category distinguishes the two rule families.
type Category string

const (
	// CategoryTerm rules are keyed by negotiated payment term days.
	CategoryTerm Category = "term"
	// CategoryValue rules are keyed by a minimum order subtotal.
	CategoryValue Category = "value"
)

// Rule is one configured discount/surcharge entry. Threshold holds days for
// term rules and a minimum subtotal for value rules.
type Rule struct {
	ID        uuid.UUID
	Category  Category
	Threshold decimal.Decimal
	Percent   decimal.Decimal
	Kind      RuleKind
}

// Selection names the rules the caller picked, at most one per category.
// The engine never infers a "best" rule on its own.
type Selection struct {
	TermRuleID  *uuid.UUID
	ValueRuleID *uuid.UUID
}

// Result aggregates the combined adjustment for one subtotal.
type Result struct {
	DiscountAmount  decimal.Decimal
	SurchargeAmount decimal.Decimal
	// ValueRuleInactive is set when the selected value rule no longer
	// qualifies for the subtotal. Its contribution is zero; the caller is
	// expected to clear the stale selection.
	ValueRuleInactive bool
}

// Total applies the adjustment to the subtotal, floored at zero.
func (r Result) Total(subtotal decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(r.SurchargeAmount).Sub(r.DiscountAmount)
	if total.Sign() < 0 {
		return decimal.Zero
	}
	return total
}

var hundred = decimal.NewFromInt(100)

// Select computes the combined adjustment for the given subtotal and rule
// selection. Contributions from the term and value categories stack
// additively. A negative subtotal is a caller bug and panics.
func Select(subtotal decimal.Decimal, sel Selection, termRules, valueRules []Rule) (Result, error) {
	if subtotal.Sign() < 0 {
		panic(fmt.Sprintf("adjustment: negative subtotal %s", subtotal))
	}
	var res Result
	res.DiscountAmount = decimal.Zero
	res.SurchargeAmount = decimal.Zero

	if sel.TermRuleID != nil {
		rule, err := findRule(termRules, *sel.TermRuleID)
		if err != nil {
			return Result{}, fmt.Errorf("term rule %s: %w", *sel.TermRuleID, err)
		}
		res.apply(rule, subtotal)
	}
	if sel.ValueRuleID != nil {
		rule, err := findRule(valueRules, *sel.ValueRuleID)
		if err != nil {
			return Result{}, fmt.Errorf("value rule %s: %w", *sel.ValueRuleID, err)
		}
		// A value rule only qualifies while the subtotal meets its minimum.
		if subtotal.LessThan(rule.Threshold) {
			res.ValueRuleInactive = true
		} else {
			res.apply(rule, subtotal)
		}
	}
	return res, nil
}

func (r *Result) apply(rule Rule, subtotal decimal.Decimal) {
	amount := subtotal.Mul(rule.Percent).Div(hundred)
	switch rule.Kind {
	case KindSurcharge:
		r.SurchargeAmount = r.SurchargeAmount.Add(amount)
	default:
		r.DiscountAmount = r.DiscountAmount.Add(amount)
	}
}

func findRule(rules []Rule, id uuid.UUID) (Rule, error) {
	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return Rule{}, ErrRuleNotFound
}
