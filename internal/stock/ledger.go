// Package stock derives product availability from the append-only movement
// ledger and the backlog of quantities committed to non-finalized orders.
package stock

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction marks a movement as stock in or stock out.
type Direction string

const (
	// DirectionEntry increases the balance.
	DirectionEntry Direction = "entry"
	// DirectionExit decreases the balance.
	DirectionExit Direction = "exit"
)

// Movement is one immutable ledger record for a product.
type Movement struct {
	ProductID uuid.UUID
	Direction Direction
	Quantity  decimal.Decimal
}

// Policy carries the externally sourced control switches.
type Policy struct {
	// ControlActive gates the whole check; when false every request is
	// allowed and no shortfall is computed.
	ControlActive bool
	// BlockOnShortage decides between hard rejection and a warning result.
	BlockOnShortage bool
}

// Result reports the availability evaluation for one request.
type Result struct {
	Available decimal.Decimal
	Allowed   bool
	// Shortfall is how far the request exceeds availability; zero when the
	// request fits. Surfaced even when blocking is disabled so callers can
	// warn that the ledger would go negative.
	Shortfall decimal.Decimal
	Reason    string
}

// Balance folds the signed movement history: entries minus exits. A negative
// movement quantity is a caller bug and panics.
func Balance(movements []Movement) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range movements {
		if m.Quantity.Sign() < 0 {
			panic(fmt.Sprintf("stock: negative movement quantity %s for product %s", m.Quantity, m.ProductID))
		}
		switch m.Direction {
		case DirectionEntry:
			balance = balance.Add(m.Quantity)
		case DirectionExit:
			balance = balance.Sub(m.Quantity)
		default:
			panic(fmt.Sprintf("stock: unknown movement direction %q", m.Direction))
		}
	}
	return balance
}

// Check evaluates whether requested units can be satisfied.
//
//	available = balance − (reserved − currentlyHeld)
//
// currentlyHeld is the quantity already reserved by the line being edited, so
// an edit does not count against itself. A non-positive requested quantity
// panics.
func Check(balance, reserved, currentlyHeld, requested decimal.Decimal, policy Policy) Result {
	if requested.Sign() <= 0 {
		panic(fmt.Sprintf("stock: non-positive requested quantity %s", requested))
	}
	available := balance.Sub(reserved.Sub(currentlyHeld))
	res := Result{
		Available: available,
		Allowed:   true,
		Shortfall: decimal.Zero,
	}
	if !policy.ControlActive {
		return res
	}
	if available.GreaterThanOrEqual(requested) {
		return res
	}
	res.Shortfall = requested.Sub(available)
	res.Reason = fmt.Sprintf("insufficient stock: requested %s, available %s", requested, available)
	if policy.BlockOnShortage {
		res.Allowed = false
	}
	return res
}
