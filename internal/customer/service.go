// Package customer serves the per-customer adjustment rules and the
// fiscal document gate used during order entry.
package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vendas/internal/adjustment"
	"github.com/noah-isme/backend-vendas/internal/document"
	"github.com/noah-isme/backend-vendas/internal/obs"
)

type ruleSource interface {
	RulesByCustomer(ctx context.Context, customerID uuid.UUID) (term, value []adjustment.Rule, err error)
}

// Service exposes customer terms to the order composition flow.
type Service struct {
	rules ruleSource
}

// NewService constructs a Service.
func NewService(rules ruleSource) (*Service, error) {
	if rules == nil {
		return nil, errors.New("customer: rule source is required")
	}
	return &Service{rules: rules}, nil
}

// Rule is the public shape of one adjustment rule.
type Rule struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Threshold decimal.Decimal `json:"threshold"`
	Percent   decimal.Decimal `json:"percent"`
	Kind      string          `json:"kind"`
}

// RuleSet groups a customer's rules by category.
type RuleSet struct {
	Term  []Rule `json:"term"`
	Value []Rule `json:"value"`
}

// Rules returns the customer's configured rules.
func (s *Service) Rules(ctx context.Context, customerID uuid.UUID) (RuleSet, error) {
	term, value, err := s.rules.RulesByCustomer(ctx, customerID)
	if err != nil {
		return RuleSet{}, fmt.Errorf("customer rules: %w", err)
	}
	return RuleSet{Term: toRuleDTOs(term), Value: toRuleDTOs(value)}, nil
}

// DocumentCheck is the outcome of validating a fiscal document.
type DocumentCheck struct {
	Kind       document.Kind `json:"kind"`
	Normalized string        `json:"normalized"`
	Valid      bool          `json:"valid"`
}

// CheckDocument validates a CPF or CNPJ. Malformed input is never an
// error, just an invalid result.
func CheckDocument(kind document.Kind, raw string) DocumentCheck {
	check := DocumentCheck{
		Kind:       kind,
		Normalized: document.Normalize(raw),
		Valid:      document.Validate(kind, raw),
	}
	if obs.DocumentValidationTotal != nil {
		result := "invalid"
		if check.Valid {
			result = "valid"
		}
		obs.DocumentValidationTotal.WithLabelValues(string(kind), result).Inc()
	}
	return check
}

func toRuleDTOs(rules []adjustment.Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, Rule{
			ID:        r.ID.String(),
			Category:  string(r.Category),
			Threshold: r.Threshold,
			Percent:   r.Percent,
			Kind:      string(r.Kind),
		})
	}
	return out
}
