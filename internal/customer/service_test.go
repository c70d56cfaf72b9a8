package customer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-vendas/internal/adjustment"
	"github.com/noah-isme/backend-vendas/internal/customer"
	"github.com/noah-isme/backend-vendas/internal/document"
)

type fakeRules struct {
	term  []adjustment.Rule
	value []adjustment.Rule
}

func (f fakeRules) RulesByCustomer(context.Context, uuid.UUID) ([]adjustment.Rule, []adjustment.Rule, error) {
	return f.term, f.value, nil
}

func TestRulesSplitByCategory(t *testing.T) {
	termID, valueID := uuid.New(), uuid.New()
	svc, err := customer.NewService(fakeRules{
		term: []adjustment.Rule{{
			ID:        termID,
			Category:  adjustment.CategoryTerm,
			Threshold: decimal.NewFromInt(30),
			Percent:   decimal.NewFromInt(5),
			Kind:      adjustment.KindDiscount,
		}},
		value: []adjustment.Rule{{
			ID:        valueID,
			Category:  adjustment.CategoryValue,
			Threshold: decimal.NewFromInt(500),
			Percent:   decimal.NewFromInt(2),
			Kind:      adjustment.KindSurcharge,
		}},
	})
	require.NoError(t, err)

	rules, err := svc.Rules(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, rules.Term, 1)
	require.Len(t, rules.Value, 1)
	require.Equal(t, termID.String(), rules.Term[0].ID)
	require.Equal(t, "surcharge", rules.Value[0].Kind)
}

func TestCheckDocument(t *testing.T) {
	check := customer.CheckDocument(document.KindCPF, "529.982.247-25")
	require.True(t, check.Valid)
	require.Equal(t, "52998224725", check.Normalized)

	check = customer.CheckDocument(document.KindCNPJ, "11.222.333/0001-99")
	require.False(t, check.Valid)
}

func TestValidateDocumentHandler(t *testing.T) {
	handler := customer.NewHandler(nil)

	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/validate", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ValidateDocument(rec, req)
		return rec
	}

	rec := do(`{"kind":"cpf","document":"529.982.247-25"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data customer.DocumentCheck `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Data.Valid)

	rec = do(`{"kind":"rg","document":"123"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(`{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRulesHandlerRejectsBadID(t *testing.T) {
	svc, err := customer.NewService(fakeRules{})
	require.NoError(t, err)
	handler := customer.NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/nope/rules", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	handler.Rules(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
