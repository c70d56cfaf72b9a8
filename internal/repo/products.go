package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vendas/internal/pricing"
)

// ProductRepo reads the product catalog rows consumed by the price
// resolver.
type ProductRepo struct {
	DB Querier
}

const productColumns = `
	p.id, p.name, p.base_price, p.unit_code, p.unit_fractional,
	p.promo_kind, p.promo_value,
	p.qty_threshold, p.qty_kind, p.qty_value
`

// GetByID returns one active product with its discount descriptors.
func (r ProductRepo) GetByID(ctx context.Context, id uuid.UUID) (pricing.Product, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products p
		WHERE p.id = $1 AND p.active
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return pricing.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// List returns active products ordered by name.
func (r ProductRepo) List(ctx context.Context, limit, offset int32) ([]pricing.Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		WHERE p.active
		ORDER BY p.name
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []pricing.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (pricing.Product, error) {
	var (
		p          pricing.Product
		promoKind  *string
		promoValue decimal.NullDecimal
		qtyThresh  decimal.NullDecimal
		qtyKind    *string
		qtyValue   decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.BasePrice, &p.Unit.Code, &p.Unit.Fractional,
		&promoKind, &promoValue,
		&qtyThresh, &qtyKind, &qtyValue,
	)
	if err != nil {
		return pricing.Product{}, err
	}
	if promoKind != nil && promoValue.Valid {
		p.Promotion = &pricing.Promotion{
			Kind:  pricing.DiscountKind(*promoKind),
			Value: promoValue.Decimal,
		}
	}
	if qtyKind != nil && qtyThresh.Valid && qtyValue.Valid {
		p.QuantityDiscount = &pricing.QuantityDiscount{
			Threshold: qtyThresh.Decimal,
			Kind:      pricing.DiscountKind(*qtyKind),
			Value:     qtyValue.Decimal,
		}
	}
	return p, nil
}
