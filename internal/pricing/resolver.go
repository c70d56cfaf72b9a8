// Package pricing resolves effective unit prices for order lines, applying
// the single best discount among a product promotion and a quantity
// threshold discount.
package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountKind distinguishes how a discount value is interpreted.
type DiscountKind string

const (
	// DiscountPercent applies value as a percentage of the base price.
	DiscountPercent DiscountKind = "percent"
	// DiscountAmount subtracts value from the base price.
	DiscountAmount DiscountKind = "amount"
)

// Applied identifies which discount source produced the effective price.
type Applied string

const (
	// AppliedNone means the base price stands.
	AppliedNone Applied = "none"
	// AppliedPromotion means the product promotion produced the price.
	AppliedPromotion Applied = "promotion"
	// AppliedQuantity means the quantity threshold discount produced the price.
	AppliedQuantity Applied = "quantity_threshold"
)

// Promotion describes an unconditional product discount.
type Promotion struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// QuantityDiscount describes a discount granted at or above a threshold
// quantity.
type QuantityDiscount struct {
	Threshold decimal.Decimal
	Kind      DiscountKind
	Value     decimal.Decimal
}

// Unit carries display semantics for a product's unit of measure. Fractional
// units accept decimal quantities; pricing itself is unaffected.
type Unit struct {
	Code       string
	Fractional bool
}

// Product is the catalog read model consumed by the resolver.
type Product struct {
	ID               uuid.UUID
	Name             string
	BasePrice        decimal.Decimal
	Promotion        *Promotion
	QuantityDiscount *QuantityDiscount
	Unit             Unit
}

// Resolution is the outcome of resolving one (product, quantity) pair.
type Resolution struct {
	UnitPrice     decimal.Decimal
	OriginalPrice decimal.Decimal
	Applied       Applied
}

// LineTotal returns the extended value for the resolved quantity.
func (r Resolution) LineTotal(qty decimal.Decimal) decimal.Decimal {
	return r.UnitPrice.Mul(qty)
}

// ResolveUnitPrice computes the effective unit price for the requested
// quantity. The promotion price is computed first; the quantity threshold
// price overrides it unless the promotion is strictly cheaper. A negative
// base price or a non-positive quantity is a caller bug and panics.
func ResolveUnitPrice(p Product, qty decimal.Decimal) Resolution {
	if qty.Sign() <= 0 {
		panic(fmt.Sprintf("pricing: non-positive quantity %s for product %s", qty, p.ID))
	}
	if p.BasePrice.Sign() < 0 {
		panic(fmt.Sprintf("pricing: negative base price %s for product %s", p.BasePrice, p.ID))
	}
	res := Resolution{
		UnitPrice:     p.BasePrice,
		OriginalPrice: p.BasePrice,
		Applied:       AppliedNone,
	}
	if p.Promotion != nil {
		res.UnitPrice = applyDiscount(p.BasePrice, p.Promotion.Kind, p.Promotion.Value)
		res.Applied = AppliedPromotion
	}
	if qd := p.QuantityDiscount; qd != nil && qty.GreaterThanOrEqual(qd.Threshold) {
		price := applyDiscount(p.BasePrice, qd.Kind, qd.Value)
		// Computed second; wins over the promotion unless the promotion is
		// strictly cheaper. The ordering is load-bearing for reproducibility.
		if res.Applied == AppliedNone || !price.GreaterThan(res.UnitPrice) {
			res.UnitPrice = price
			res.Applied = AppliedQuantity
		}
	}
	if res.UnitPrice.GreaterThan(p.BasePrice) {
		res.UnitPrice = p.BasePrice
		res.Applied = AppliedNone
	}
	return res
}

var hundred = decimal.NewFromInt(100)

func applyDiscount(base decimal.Decimal, kind DiscountKind, value decimal.Decimal) decimal.Decimal {
	var price decimal.Decimal
	switch kind {
	case DiscountPercent:
		price = base.Mul(decimal.NewFromInt(1).Sub(value.Div(hundred)))
	case DiscountAmount:
		price = base.Sub(value)
	default:
		price = base
	}
	if price.Sign() < 0 {
		return decimal.Zero
	}
	return price
}
