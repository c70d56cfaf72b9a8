package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vendas/internal/obs"
)

// MovementSource reads the append-only ledger for one product.
type MovementSource interface {
	ListMovementsByProduct(ctx context.Context, productID uuid.UUID) ([]Movement, error)
}

// BacklogSource reads quantities committed to non-finalized orders.
type BacklogSource interface {
	ReservedQuantity(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
}

// Service evaluates availability against snapshots fetched from the stores.
// The computation itself is pure; the service only assembles the inputs.
type Service struct {
	Movements MovementSource
	Backlog   BacklogSource
	Policy    Policy
}

// CheckAvailability fetches the movement and backlog snapshots for the
// product and evaluates the request under the configured policy.
// currentlyHeld is the quantity the edited line already reserves.
func (s *Service) CheckAvailability(ctx context.Context, productID uuid.UUID, requested, currentlyHeld decimal.Decimal) (Result, error) {
	if s == nil || s.Movements == nil || s.Backlog == nil {
		return Result{}, errors.New("stock service not configured")
	}
	movements, err := s.Movements.ListMovementsByProduct(ctx, productID)
	if err != nil {
		return Result{}, fmt.Errorf("load movements: %w", err)
	}
	reserved, err := s.Backlog.ReservedQuantity(ctx, productID)
	if err != nil {
		return Result{}, fmt.Errorf("load backlog: %w", err)
	}
	res := Check(Balance(movements), reserved, currentlyHeld, requested, s.Policy)
	if obs.StockCheckTotal != nil {
		obs.StockCheckTotal.WithLabelValues(checkOutcome(res)).Inc()
	}
	return res, nil
}

func checkOutcome(res Result) string {
	switch {
	case !res.Allowed:
		return "blocked"
	case res.Shortfall.Sign() > 0:
		return "warned"
	default:
		return "ok"
	}
}
