// Package order owns the draft order session: the mutable set of lines,
// rule selections and settlement plan that becomes an immutable order at
// finalize.
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vendas/internal/pricing"
	"github.com/noah-isme/backend-vendas/internal/stock"
)

var (
	// ErrNotFound is returned when the order or line does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrNotDraft is returned when a mutation targets an order that
	// already left the draft state.
	ErrNotDraft = errors.New("order is not a draft")
)

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusDraft orders are editable; their lines reserve stock as backlog.
	StatusDraft Status = "draft"
	// StatusFinal orders are immutable and have consumed their stock.
	StatusFinal Status = "final"
	// StatusCancelled orders released their backlog without consuming stock.
	StatusCancelled Status = "cancelled"
)

// Line is one product position on an order. Prices are captured at the
// time the line is added or its quantity changes.
type Line struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	ProductName   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	OriginalPrice decimal.Decimal
	Applied       pricing.Applied
	// Note is free text the seller attaches to the position.
	Note string
}

// Total returns the extended line value.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity)
}

// Order is the persisted session state.
type Order struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	Status      Status
	TermRuleID  *uuid.UUID
	ValueRuleID *uuid.UUID
	Lines       []Line
	CreatedAt   time.Time
	FinalizedAt *time.Time
}

// Subtotal sums the line totals.
func (o Order) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range o.Lines {
		subtotal = subtotal.Add(l.Total())
	}
	return subtotal
}

// Line returns the line with the given id.
func (o Order) Line(lineID uuid.UUID) (Line, bool) {
	for _, l := range o.Lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return Line{}, false
}

// Totals is the order quote persisted at finalize.
type Totals struct {
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	SurchargeAmount decimal.Decimal
	Total           decimal.Decimal
}

// ShortageError reports a finalize-time stock shortage. The draft stays
// intact; the caller may retry after adjusting quantities.
type ShortageError struct {
	ProductID uuid.UUID
	Result    stock.Result
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("product %s: %s", e.ProductID, e.Result.Reason)
}
