package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-vendas/internal/adjustment"
)

// RuleRepo reads the per-customer discount and surcharge rules.
type RuleRepo struct {
	DB Querier
}

// RulesByCustomer returns the customer's rules split by category.
func (r RuleRepo) RulesByCustomer(ctx context.Context, customerID uuid.UUID) (term, value []adjustment.Rule, err error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, category, threshold, percent, kind
		FROM customer_rules
		WHERE customer_id = $1
		ORDER BY category, threshold
	`, customerID)
	if err != nil {
		return nil, nil, fmt.Errorf("list customer rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rule adjustment.Rule
		if err := rows.Scan(&rule.ID, &rule.Category, &rule.Threshold, &rule.Percent, &rule.Kind); err != nil {
			return nil, nil, fmt.Errorf("scan rule: %w", err)
		}
		switch rule.Category {
		case adjustment.CategoryValue:
			value = append(value, rule)
		default:
			term = append(term, rule)
		}
	}
	return term, value, rows.Err()
}
