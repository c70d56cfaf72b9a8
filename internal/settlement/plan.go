// Package settlement validates how an order total is covered by one or more
// payment instruments, including installment constraints.
package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MethodKind separates instruments that support installments from those
// that settle in one shot.
type MethodKind string

const (
	// MethodCash covers cash-like single shot instruments.
	MethodCash MethodKind = "cash"
	// MethodCard covers credit-card-like instruments with installments.
	MethodCard MethodKind = "card"
)

// Method is one entry of the payment method catalog.
type Method struct {
	ID              uuid.UUID
	Name            string
	Kind            MethodKind
	MaxInstallments int32
}

// SupportsInstallments reports whether installment counts apply to the
// method.
func (m Method) SupportsInstallments() bool {
	return m.Kind == MethodCard
}

// Allocation assigns part of the order total to one method. Installments is
// only meaningful for installment-capable methods and is normalized to zero
// everywhere else.
type Allocation struct {
	MethodID     uuid.UUID
	Amount       decimal.Decimal
	Installments int32
}

// Plan is the settlement choice for one order: a single instrument or a
// split across several.
type Plan interface {
	isPlan()
}

// Single settles the whole total with one method.
type Single struct {
	MethodID     uuid.UUID
	Installments int32
}

func (Single) isPlan() {}

// Split settles the total across multiple allocations, at most one per
// method.
type Split struct {
	Allocations []Allocation
}

func (Split) isPlan() {}
