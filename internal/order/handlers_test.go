package order_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-vendas/internal/order"
	"github.com/noah-isme/backend-vendas/internal/stock"
)

func routedRequest(method, target, body string, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateOrderHandler(t *testing.T) {
	f := newFixture(t)
	h := order.NewHandler(f.svc)

	body := fmt.Sprintf(`{"customerId":%q}`, uuid.New())
	rec := httptest.NewRecorder()
	h.Create(rec, routedRequest(http.MethodPost, "/api/v1/orders", body, nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "draft", resp.Data.Status)
	require.NotEmpty(t, resp.Data.ID)
}

func TestCreateOrderHandlerRejectsBadBody(t *testing.T) {
	f := newFixture(t)
	h := order.NewHandler(f.svc)

	rec := httptest.NewRecorder()
	h.Create(rec, routedRequest(http.MethodPost, "/api/v1/orders", `{"customerId":"nope"}`, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Create(rec, routedRequest(http.MethodPost, "/api/v1/orders", `{broken`, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddLineHandlerReportsShortage(t *testing.T) {
	f := newFixture(t)
	f.stock.result = stock.Result{
		Available: dec("3"),
		Allowed:   false,
		Shortfall: dec("7"),
		Reason:    "insufficient stock: requested 10, available 3",
	}
	o, err := f.svc.CreateDraft(context.Background(), uuid.New())
	require.NoError(t, err)

	h := order.NewHandler(f.svc)
	body := fmt.Sprintf(`{"productId":%q,"quantity":"10"}`, f.product)
	rec := httptest.NewRecorder()
	h.AddLine(rec, routedRequest(http.MethodPost, "/api/v1/orders/x/lines", body, map[string]string{"id": o.ID.String()}))

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Available string `json:"available"`
				Shortfall string `json:"shortfall"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "STOCK_SHORTAGE", resp.Error.Code)
	require.Equal(t, "3", resp.Error.Details.Available)
	require.Equal(t, "7", resp.Error.Details.Shortfall)
}

func TestAddLineHandlerSurfacesWarning(t *testing.T) {
	f := newFixture(t)
	f.stock.result = stock.Result{
		Available: dec("3"),
		Allowed:   true,
		Shortfall: dec("7"),
		Reason:    "insufficient stock: requested 10, available 3",
	}
	o, err := f.svc.CreateDraft(context.Background(), uuid.New())
	require.NoError(t, err)

	h := order.NewHandler(f.svc)
	body := fmt.Sprintf(`{"productId":%q,"quantity":"10"}`, f.product)
	rec := httptest.NewRecorder()
	h.AddLine(rec, routedRequest(http.MethodPost, "/api/v1/orders/x/lines", body, map[string]string{"id": o.ID.String()}))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Stock struct {
			Allowed bool   `json:"allowed"`
			Warning string `json:"warning"`
		} `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Stock.Allowed)
	require.NotEmpty(t, resp.Stock.Warning)
}

func TestFinalizeHandlerSinglePlan(t *testing.T) {
	f := newFixture(t)
	orderID, _ := f.draftWithLine(t, "10")

	h := order.NewHandler(f.svc)
	body := fmt.Sprintf(`{"plan":{"type":"single","methodId":%q,"installments":3}}`, f.card)
	rec := httptest.NewRecorder()
	h.Finalize(rec, routedRequest(http.MethodPost, "/api/v1/orders/x/finalize", body, map[string]string{"id": orderID.String()}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "final", resp.Data.Status)
}

func TestFinalizeHandlerUnbalancedSplit(t *testing.T) {
	f := newFixture(t)
	orderID, _ := f.draftWithLine(t, "10") // total 800

	h := order.NewHandler(f.svc)
	body := fmt.Sprintf(`{"plan":{"type":"split","allocations":[{"methodId":%q,"amount":"500"}]}}`, f.cash)
	rec := httptest.NewRecorder()
	h.Finalize(rec, routedRequest(http.MethodPost, "/api/v1/orders/x/finalize", body, map[string]string{"id": orderID.String()}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "PLAN_UNBALANCED", resp.Error.Code)
}

func TestFinalizeHandlerRejectsUnknownPlanType(t *testing.T) {
	f := newFixture(t)
	orderID, _ := f.draftWithLine(t, "10")

	h := order.NewHandler(f.svc)
	rec := httptest.NewRecorder()
	h.Finalize(rec, routedRequest(http.MethodPost, "/api/v1/orders/x/finalize",
		`{"plan":{"type":"barter"}}`, map[string]string{"id": orderID.String()}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteHandler(t *testing.T) {
	f := newFixture(t)
	orderID, _ := f.draftWithLine(t, "10")
	require.NoError(t, f.svc.SelectRules(context.Background(), orderID, &f.termID, nil))

	h := order.NewHandler(f.svc)
	rec := httptest.NewRecorder()
	h.Quote(rec, routedRequest(http.MethodGet, "/api/v1/orders/x/quote", "", map[string]string{"id": orderID.String()}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Subtotal       string `json:"subtotal"`
			DiscountAmount string `json:"discountAmount"`
			Total          string `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "800", resp.Data.Subtotal)
	require.Equal(t, "40", resp.Data.DiscountAmount)
	require.Equal(t, "760", resp.Data.Total)
}
