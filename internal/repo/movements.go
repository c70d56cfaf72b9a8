package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vendas/internal/stock"
)

// MovementRepo reads the append-only stock movement ledger.
type MovementRepo struct {
	DB Querier
}

// ListMovementsByProduct returns the full movement history for a product
// in insertion order. Implements stock.MovementSource.
func (r MovementRepo) ListMovementsByProduct(ctx context.Context, productID uuid.UUID) ([]stock.Movement, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, direction, quantity
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at, id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var movements []stock.Movement
	for rows.Next() {
		var m stock.Movement
		if err := rows.Scan(&m.ProductID, &m.Direction, &m.Quantity); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// balanceQ folds the ledger in SQL; used inside the finalize transaction
// where loading the whole history per line would bloat the lock window.
func balanceQ(ctx context.Context, q Querier, productID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'entry' THEN quantity ELSE -quantity END), 0)
		FROM stock_movements
		WHERE product_id = $1
	`, productID).Scan(&balance)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("ledger balance: %w", err)
	}
	return balance, nil
}
