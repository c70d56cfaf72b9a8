package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-vendas/internal/settlement"
)

// MethodRepo reads the payment method catalog.
type MethodRepo struct {
	DB Querier
}

// List returns the active payment methods ordered by name.
func (r MethodRepo) List(ctx context.Context) ([]settlement.Method, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, kind, max_installments
		FROM payment_methods
		WHERE active
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []settlement.Method
	for rows.Next() {
		var m settlement.Method
		if err := rows.Scan(&m.ID, &m.Name, &m.Kind, &m.MaxInstallments); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// Map returns the active methods keyed by id, the shape the reconciler
// consumes.
func (r MethodRepo) Map(ctx context.Context) (map[uuid.UUID]settlement.Method, error) {
	methods, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]settlement.Method, len(methods))
	for _, m := range methods {
		out[m.ID] = m
	}
	return out, nil
}
