package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BacklogRepo derives reserved quantities from the lines of orders that
// have not been finalized yet.
type BacklogRepo struct {
	DB Querier
}

// ReservedQuantity sums the draft order lines holding the product.
// Implements stock.BacklogSource.
func (r BacklogRepo) ReservedQuantity(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return reservedQ(ctx, r.DB, productID)
}

func reservedQ(ctx context.Context, q Querier, productID uuid.UUID) (decimal.Decimal, error) {
	var reserved decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(ol.quantity), 0)
		FROM order_lines ol
		JOIN orders o ON o.id = ol.order_id
		WHERE ol.product_id = $1 AND o.status = 'draft'
	`, productID).Scan(&reserved)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("backlog reservation: %w", err)
	}
	return reserved, nil
}
