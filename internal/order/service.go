package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vendas/internal/adjustment"
	"github.com/noah-isme/backend-vendas/internal/common"
	"github.com/noah-isme/backend-vendas/internal/obs"
	"github.com/noah-isme/backend-vendas/internal/pricing"
	"github.com/noah-isme/backend-vendas/internal/settlement"
	"github.com/noah-isme/backend-vendas/internal/stock"
)

// Store persists draft orders and runs the finalize transaction.
type Store interface {
	CreateDraft(ctx context.Context, customerID uuid.UUID) (Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (Order, error)
	InsertLine(ctx context.Context, orderID uuid.UUID, line Line) (Line, error)
	UpdateLine(ctx context.Context, orderID uuid.UUID, line Line) error
	DeleteLine(ctx context.Context, orderID, lineID uuid.UUID) error
	SetRuleSelection(ctx context.Context, orderID uuid.UUID, termRuleID, valueRuleID *uuid.UUID) error
	Cancel(ctx context.Context, orderID uuid.UUID) error
	Finalize(ctx context.Context, orderID uuid.UUID, totals Totals, allocations []settlement.Allocation, policy stock.Policy) error
	ExpireDrafts(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Catalog loads the product read model for pricing.
type Catalog interface {
	Load(ctx context.Context, id uuid.UUID) (pricing.Product, error)
}

// RuleSource reads the customer's adjustment rules.
type RuleSource interface {
	RulesByCustomer(ctx context.Context, customerID uuid.UUID) (term, value []adjustment.Rule, err error)
}

// MethodSource reads the payment method catalog.
type MethodSource interface {
	Map(ctx context.Context) (map[uuid.UUID]settlement.Method, error)
}

// StockChecker evaluates availability for one product.
type StockChecker interface {
	CheckAvailability(ctx context.Context, productID uuid.UUID, requested, currentlyHeld decimal.Decimal) (stock.Result, error)
}

// Service drives the draft order lifecycle from first line to finalize.
type Service struct {
	store   Store
	catalog Catalog
	rules   RuleSource
	methods MethodSource
	stock   StockChecker
	policy  stock.Policy
	epsilon *decimal.Decimal
	log     zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store   Store
	Catalog Catalog
	Rules   RuleSource
	Methods MethodSource
	Stock   StockChecker
	Policy  stock.Policy
	// Epsilon overrides the settlement tolerance; nil keeps the default,
	// an explicit zero demands exact sums.
	Epsilon *decimal.Decimal
	Logger  zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("order: store is required")
	case cfg.Catalog == nil:
		return nil, errors.New("order: catalog is required")
	case cfg.Rules == nil:
		return nil, errors.New("order: rule source is required")
	case cfg.Methods == nil:
		return nil, errors.New("order: method source is required")
	case cfg.Stock == nil:
		return nil, errors.New("order: stock checker is required")
	}
	return &Service{
		store:   cfg.Store,
		catalog: cfg.Catalog,
		rules:   cfg.Rules,
		methods: cfg.Methods,
		stock:   cfg.Stock,
		policy:  cfg.Policy,
		epsilon: cfg.Epsilon,
		log:     cfg.Logger,
	}, nil
}

// Quote is the priced view of a draft.
type Quote struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	SurchargeAmount   decimal.Decimal `json:"surchargeAmount"`
	ValueRuleInactive bool            `json:"valueRuleInactive"`
	Total             decimal.Decimal `json:"total"`
}

// CreateDraft opens an empty draft for the customer.
func (s *Service) CreateDraft(ctx context.Context, customerID uuid.UUID) (Order, error) {
	o, err := s.store.CreateDraft(ctx, customerID)
	if err != nil {
		return Order{}, err
	}
	s.log.Info().Str("order_id", o.ID.String()).Str("customer_id", customerID.String()).Msg("draft_created")
	return o, nil
}

// Get loads an order with its lines.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Order{}, mapStoreErr(err)
	}
	return o, nil
}

// AddLine prices the product for the quantity, checks stock and appends
// the line. The stock result is returned so callers can surface warnings
// even when the line is accepted.
func (s *Service) AddLine(ctx context.Context, orderID, productID uuid.UUID, qty decimal.Decimal, note string) (Line, stock.Result, error) {
	product, res, err := s.priceAndCheck(ctx, productID, qty, decimal.Zero)
	if err != nil {
		return Line{}, res, err
	}
	resolution := pricing.ResolveUnitPrice(product, qty)
	line := Line{
		ProductID:     productID,
		ProductName:   product.Name,
		Quantity:      qty,
		UnitPrice:     resolution.UnitPrice,
		OriginalPrice: resolution.OriginalPrice,
		Applied:       resolution.Applied,
		Note:          note,
	}
	line, err = s.store.InsertLine(ctx, orderID, line)
	if err != nil {
		return Line{}, res, mapStoreErr(err)
	}
	return line, res, nil
}

// UpdateLineQuantity re-prices and re-checks the line for the new
// quantity. The line's current reservation does not count against itself.
// A nil note keeps the stored one.
func (s *Service) UpdateLineQuantity(ctx context.Context, orderID, lineID uuid.UUID, qty decimal.Decimal, note *string) (Line, stock.Result, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return Line{}, stock.Result{}, err
	}
	line, ok := o.Line(lineID)
	if !ok {
		return Line{}, stock.Result{}, common.NotFound("order line not found")
	}
	product, res, err := s.priceAndCheck(ctx, line.ProductID, qty, line.Quantity)
	if err != nil {
		return Line{}, res, err
	}
	resolution := pricing.ResolveUnitPrice(product, qty)
	line.Quantity = qty
	line.UnitPrice = resolution.UnitPrice
	line.OriginalPrice = resolution.OriginalPrice
	line.Applied = resolution.Applied
	if note != nil {
		line.Note = *note
	}
	if err := s.store.UpdateLine(ctx, orderID, line); err != nil {
		return Line{}, res, mapStoreErr(err)
	}
	return line, res, nil
}

// RemoveLine drops the line, releasing its backlog reservation.
func (s *Service) RemoveLine(ctx context.Context, orderID, lineID uuid.UUID) error {
	if err := s.store.DeleteLine(ctx, orderID, lineID); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// CheckLine re-evaluates availability for one existing line.
func (s *Service) CheckLine(ctx context.Context, orderID, lineID uuid.UUID) (stock.Result, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return stock.Result{}, err
	}
	line, ok := o.Line(lineID)
	if !ok {
		return stock.Result{}, common.NotFound("order line not found")
	}
	return s.stock.CheckAvailability(ctx, line.ProductID, line.Quantity, line.Quantity)
}

// SelectRules stores the chosen term and value rules after verifying they
// belong to the order's customer. Nil clears a selection.
func (s *Service) SelectRules(ctx context.Context, orderID uuid.UUID, termRuleID, valueRuleID *uuid.UUID) error {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	term, value, err := s.rules.RulesByCustomer(ctx, o.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer rules: %w", err)
	}
	if termRuleID != nil && !hasRule(term, *termRuleID) {
		return common.BadRequest("term rule does not belong to the customer", adjustment.ErrRuleNotFound)
	}
	if valueRuleID != nil && !hasRule(value, *valueRuleID) {
		return common.BadRequest("value rule does not belong to the customer", adjustment.ErrRuleNotFound)
	}
	if err := s.store.SetRuleSelection(ctx, orderID, termRuleID, valueRuleID); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// Quote prices the draft: line subtotal plus the selected adjustments.
func (s *Service) Quote(ctx context.Context, orderID uuid.UUID) (Quote, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return Quote{}, err
	}
	return s.quote(ctx, o)
}

func (s *Service) quote(ctx context.Context, o Order) (Quote, error) {
	subtotal := o.Subtotal()
	term, value, err := s.rules.RulesByCustomer(ctx, o.CustomerID)
	if err != nil {
		return Quote{}, fmt.Errorf("load customer rules: %w", err)
	}
	sel := adjustment.Selection{TermRuleID: o.TermRuleID, ValueRuleID: o.ValueRuleID}
	res, err := adjustment.Select(subtotal, sel, term, value)
	if err != nil {
		return Quote{}, common.BadRequest("selected rule no longer exists", err)
	}
	return Quote{
		Subtotal:          subtotal,
		DiscountAmount:    res.DiscountAmount,
		SurchargeAmount:   res.SurchargeAmount,
		ValueRuleInactive: res.ValueRuleInactive,
		Total:             res.Total(subtotal),
	}, nil
}

// ExpireStaleDrafts cancels drafts untouched for longer than olderThan,
// releasing their backlog reservations. Returns the number of drafts
// cancelled.
func (s *Service) ExpireStaleDrafts(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.store.ExpireDrafts(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("expire drafts: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("expired", n).Dur("older_than", olderThan).Msg("drafts_expired")
	}
	return n, nil
}

// Cancel abandons a draft.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID) error {
	if err := s.store.Cancel(ctx, orderID); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// Finalize reconciles the settlement plan against the quoted total, then
// commits the draft: stock is re-checked per line inside the store
// transaction, so a concurrent sale surfaces as a retryable conflict.
func (s *Service) Finalize(ctx context.Context, orderID uuid.UUID, plan settlement.Plan) (Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.Status != StatusDraft {
		return Order{}, common.Conflict("order is not a draft", ErrNotDraft)
	}
	if len(o.Lines) == 0 {
		return Order{}, common.BadRequest("order has no lines", nil)
	}
	q, err := s.quote(ctx, o)
	if err != nil {
		return Order{}, err
	}

	methods, err := s.methods.Map(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("load payment methods: %w", err)
	}
	reconciler := settlement.Reconciler{Methods: methods, Epsilon: s.epsilon}
	res, err := reconciler.Reconcile(plan, q.Total)
	if err != nil {
		s.countReconcile("invalid")
		s.countFinalize("plan_invalid")
		return Order{}, common.BadRequest("settlement plan is invalid", err)
	}
	if !res.OK {
		s.countReconcile("unbalanced")
		s.countFinalize("plan_unbalanced")
		return Order{}, &common.AppError{
			Code:       "PLAN_UNBALANCED",
			Message:    res.Reason,
			HTTPStatus: 422,
			Details:    map[string]any{"remaining": res.Remaining},
		}
	}
	s.countReconcile("ok")
	allocations, err := reconciler.Allocations(plan, q.Total)
	if err != nil {
		s.countFinalize("plan_invalid")
		return Order{}, common.BadRequest("settlement plan is invalid", err)
	}

	totals := Totals{
		Subtotal:        q.Subtotal,
		DiscountAmount:  q.DiscountAmount,
		SurchargeAmount: q.SurchargeAmount,
		Total:           q.Total,
	}
	if err := s.store.Finalize(ctx, orderID, totals, allocations, s.policy); err != nil {
		var shortage *ShortageError
		if errors.As(err, &shortage) {
			s.countFinalize("stock_conflict")
			return Order{}, common.Conflict(shortage.Error(), shortage)
		}
		s.countFinalize("error")
		return Order{}, mapStoreErr(err)
	}
	s.countFinalize("ok")
	s.log.Info().
		Str("order_id", orderID.String()).
		Str("total", q.Total.String()).
		Int("allocations", len(allocations)).
		Msg("order_finalized")
	return s.Get(ctx, orderID)
}

func (s *Service) priceAndCheck(ctx context.Context, productID uuid.UUID, qty, currentlyHeld decimal.Decimal) (pricing.Product, stock.Result, error) {
	if qty.Sign() <= 0 {
		return pricing.Product{}, stock.Result{}, common.BadRequest("quantity must be positive", nil)
	}
	product, err := s.catalog.Load(ctx, productID)
	if err != nil {
		return pricing.Product{}, stock.Result{}, err
	}
	if !product.Unit.Fractional && !qty.IsInteger() {
		return pricing.Product{}, stock.Result{}, common.BadRequest(
			fmt.Sprintf("unit %s does not allow fractional quantities", product.Unit.Code), nil)
	}
	res, err := s.stock.CheckAvailability(ctx, productID, qty, currentlyHeld)
	if err != nil {
		return pricing.Product{}, stock.Result{}, fmt.Errorf("check stock: %w", err)
	}
	if !res.Allowed {
		return pricing.Product{}, res, common.Conflict(res.Reason, nil)
	}
	return product, res, nil
}

func (s *Service) countFinalize(result string) {
	if obs.OrderFinalizeTotal != nil {
		obs.OrderFinalizeTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countReconcile(result string) {
	if obs.SettlementReconcileTotal != nil {
		obs.SettlementReconcileTotal.WithLabelValues(result).Inc()
	}
}

func hasRule(rules []adjustment.Rule, id uuid.UUID) bool {
	for _, r := range rules {
		if r.ID == id {
			return true
		}
	}
	return false
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NotFound("order not found")
	case errors.Is(err, ErrNotDraft):
		return common.Conflict("order is not a draft", err)
	default:
		return err
	}
}
