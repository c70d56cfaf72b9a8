package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vendas/internal/common"
	"github.com/noah-isme/backend-vendas/internal/settlement"
	"github.com/noah-isme/backend-vendas/internal/stock"
)

var validate = validator.New()

// Handler exposes the draft order lifecycle over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type lineResponse struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Applied       string          `json:"applied"`
	Note          string          `json:"note,omitempty"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
}

type orderResponse struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	Status      string          `json:"status"`
	TermRuleID  *string         `json:"termRuleId,omitempty"`
	ValueRuleID *string         `json:"valueRuleId,omitempty"`
	Lines       []lineResponse  `json:"lines"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	CreatedAt   time.Time       `json:"createdAt"`
	FinalizedAt *time.Time      `json:"finalizedAt,omitempty"`
}

type stockResponse struct {
	Available decimal.Decimal `json:"available"`
	Allowed   bool            `json:"allowed"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Warning   string          `json:"warning,omitempty"`
}

func toOrderResponse(o Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID.String(),
		CustomerID:  o.CustomerID.String(),
		Status:      string(o.Status),
		Lines:       make([]lineResponse, 0, len(o.Lines)),
		Subtotal:    o.Subtotal(),
		CreatedAt:   o.CreatedAt,
		FinalizedAt: o.FinalizedAt,
	}
	if o.TermRuleID != nil {
		s := o.TermRuleID.String()
		resp.TermRuleID = &s
	}
	if o.ValueRuleID != nil {
		s := o.ValueRuleID.String()
		resp.ValueRuleID = &s
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, toLineResponse(l))
	}
	return resp
}

func toLineResponse(l Line) lineResponse {
	return lineResponse{
		ID:            l.ID.String(),
		ProductID:     l.ProductID.String(),
		ProductName:   l.ProductName,
		Quantity:      l.Quantity,
		UnitPrice:     l.UnitPrice,
		OriginalPrice: l.OriginalPrice,
		Applied:       string(l.Applied),
		Note:          l.Note,
		LineTotal:     l.Total(),
	}
}

func toStockResponse(res stock.Result) stockResponse {
	out := stockResponse{
		Available: res.Available,
		Allowed:   res.Allowed,
		Shortfall: res.Shortfall,
	}
	if res.Allowed && res.Shortfall.Sign() > 0 {
		out.Warning = res.Reason
	}
	return out
}

type createOrderRequest struct {
	CustomerID string `json:"customerId" validate:"required,uuid4"`
}

// Create handles POST /api/v1/orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.BadRequest("invalid JSON body", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, common.BadRequest("customerId must be a UUID", err))
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		writeError(w, common.BadRequest("customerId must be a UUID", err))
		return
	}
	o, err := h.service.CreateDraft(r.Context(), customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toOrderResponse(o)})
}

// Get handles GET /api/v1/orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.service.Get(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toOrderResponse(o)})
}

type addLineRequest struct {
	ProductID string          `json:"productId" validate:"required,uuid4"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	Note      string          `json:"note" validate:"omitempty,max=500"`
}

// AddLine handles POST /api/v1/orders/{id}/lines.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.BadRequest("invalid JSON body", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, common.BadRequest("productId and quantity are required", err))
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeError(w, common.BadRequest("productId must be a UUID", err))
		return
	}
	line, res, err := h.service.AddLine(r.Context(), orderID, productID, req.Quantity, req.Note)
	if err != nil {
		writeStockError(w, err, res)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data":  toLineResponse(line),
		"stock": toStockResponse(res),
	})
}

type updateLineRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
	Note     *string         `json:"note" validate:"omitempty,max=500"`
}

// UpdateLine handles PATCH /api/v1/orders/{id}/lines/{lineID}.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathUUID(w, r, "lineID")
	if !ok {
		return
	}
	var req updateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.BadRequest("invalid JSON body", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, common.BadRequest("quantity is required", err))
		return
	}
	line, res, err := h.service.UpdateLineQuantity(r.Context(), orderID, lineID, req.Quantity, req.Note)
	if err != nil {
		writeStockError(w, err, res)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":  toLineResponse(line),
		"stock": toStockResponse(res),
	})
}

// RemoveLine handles DELETE /api/v1/orders/{id}/lines/{lineID}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathUUID(w, r, "lineID")
	if !ok {
		return
	}
	if err := h.service.RemoveLine(r.Context(), orderID, lineID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckLine handles GET /api/v1/orders/{id}/lines/{lineID}/stock.
func (h *Handler) CheckLine(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathUUID(w, r, "lineID")
	if !ok {
		return
	}
	res, err := h.service.CheckLine(r.Context(), orderID, lineID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toStockResponse(res)})
}

type selectRulesRequest struct {
	TermRuleID  *string `json:"termRuleId" validate:"omitempty,uuid4"`
	ValueRuleID *string `json:"valueRuleId" validate:"omitempty,uuid4"`
}

// SelectRules handles PUT /api/v1/orders/{id}/rules.
func (h *Handler) SelectRules(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req selectRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.BadRequest("invalid JSON body", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, common.BadRequest("rule ids must be UUIDs", err))
		return
	}
	termRuleID, err := parseOptionalUUID(req.TermRuleID)
	if err != nil {
		writeError(w, common.BadRequest("termRuleId must be a UUID", err))
		return
	}
	valueRuleID, err := parseOptionalUUID(req.ValueRuleID)
	if err != nil {
		writeError(w, common.BadRequest("valueRuleId must be a UUID", err))
		return
	}
	if err := h.service.SelectRules(r.Context(), orderID, termRuleID, valueRuleID); err != nil {
		writeError(w, err)
		return
	}
	quote, err := h.service.Quote(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// Quote handles GET /api/v1/orders/{id}/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	quote, err := h.service.Quote(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

type allocationRequest struct {
	MethodID     string          `json:"methodId" validate:"required,uuid4"`
	Amount       decimal.Decimal `json:"amount" validate:"required"`
	Installments int32           `json:"installments"`
}

type finalizeRequest struct {
	Plan struct {
		Type         string              `json:"type" validate:"required,oneof=single split"`
		MethodID     string              `json:"methodId" validate:"omitempty,uuid4"`
		Installments int32               `json:"installments"`
		Allocations  []allocationRequest `json:"allocations" validate:"dive"`
	} `json:"plan" validate:"required"`
}

// Finalize handles POST /api/v1/orders/{id}/finalize.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.BadRequest("invalid JSON body", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, common.BadRequest("plan is malformed", err))
		return
	}
	plan, err := buildPlan(req)
	if err != nil {
		writeError(w, err)
		return
	}
	o, err := h.service.Finalize(r.Context(), orderID, plan)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toOrderResponse(o)})
}

// Cancel handles DELETE /api/v1/orders/{id}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), orderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildPlan(req finalizeRequest) (settlement.Plan, error) {
	switch req.Plan.Type {
	case "single":
		methodID, err := uuid.Parse(req.Plan.MethodID)
		if err != nil {
			return nil, common.BadRequest("plan.methodId must be a UUID", err)
		}
		return settlement.Single{MethodID: methodID, Installments: req.Plan.Installments}, nil
	case "split":
		if len(req.Plan.Allocations) == 0 {
			return nil, common.BadRequest("plan.allocations must not be empty", nil)
		}
		split := settlement.Split{Allocations: make([]settlement.Allocation, 0, len(req.Plan.Allocations))}
		for _, a := range req.Plan.Allocations {
			methodID, err := uuid.Parse(a.MethodID)
			if err != nil {
				return nil, common.BadRequest("allocation methodId must be a UUID", err)
			}
			split.Allocations = append(split.Allocations, settlement.Allocation{
				MethodID:     methodID,
				Amount:       a.Amount,
				Installments: a.Installments,
			})
		}
		return split, nil
	default:
		return nil, common.BadRequest("plan.type must be single or split", nil)
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, common.BadRequest("invalid "+name, err))
		return uuid.UUID{}, false
	}
	return id, true
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func writeStockError(w http.ResponseWriter, err error, res stock.Result) {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.Code == "CONFLICT" && res.Reason != "" {
		common.JSONError(w, http.StatusConflict, "STOCK_SHORTAGE", res.Reason, map[string]any{
			"available": res.Available,
			"shortfall": res.Shortfall,
		})
		return
	}
	writeError(w, err)
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = "INTERNAL"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
