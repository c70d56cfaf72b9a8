package settlement

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownMethod is returned when a plan names a method missing from
	// the catalog.
	ErrUnknownMethod = errors.New("unknown payment method")
	// ErrInstallmentsOutOfRange is returned when the installment count
	// violates the method cap.
	ErrInstallmentsOutOfRange = errors.New("installments out of range")
	// ErrNonPositiveAmount is returned for allocations that carry no value.
	ErrNonPositiveAmount = errors.New("allocation amount must be positive")
	// ErrDuplicateMethod is returned when a split repeats a method instead
	// of merging.
	ErrDuplicateMethod = errors.New("payment method allocated twice")
	// ErrOverAllocated is returned when adding an allocation would push the
	// running sum past the order total.
	ErrOverAllocated = errors.New("allocations exceed order total")
)

// DefaultEpsilon is one minor unit of a two-decimal currency.
var DefaultEpsilon = decimal.New(1, -2)

// Result is the structured outcome of a reconciliation. A mismatch is a
// normal return, never an error: composing a split payment passes through
// incomplete states by design.
type Result struct {
	OK bool
	// Remaining is orderTotal minus the allocated sum: positive means the
	// split is short, negative means it overshoots.
	Remaining decimal.Decimal
	Reason    string
}

// Reconciler validates settlement plans against the payment method catalog.
type Reconciler struct {
	Methods map[uuid.UUID]Method
	// Epsilon is the monetary tolerance treating rounding drift as equality.
	// Nil means DefaultEpsilon; an explicit zero demands an exact sum.
	Epsilon *decimal.Decimal
}

func (r *Reconciler) epsilon() decimal.Decimal {
	if r == nil || r.Epsilon == nil || r.Epsilon.Sign() < 0 {
		return DefaultEpsilon
	}
	return *r.Epsilon
}

func (r *Reconciler) method(id uuid.UUID) (Method, error) {
	if r == nil || r.Methods == nil {
		return Method{}, errors.New("settlement reconciler not configured")
	}
	m, ok := r.Methods[id]
	if !ok {
		return Method{}, fmt.Errorf("method %s: %w", id, ErrUnknownMethod)
	}
	return m, nil
}

// Reconcile checks the plan against the order total. Malformed plans (bad
// installments, duplicated or unknown methods, empty amounts) return an
// error; an amount mismatch returns Result{OK: false} with the signed
// remainder.
func (r *Reconciler) Reconcile(plan Plan, orderTotal decimal.Decimal) (Result, error) {
	if orderTotal.Sign() < 0 {
		panic(fmt.Sprintf("settlement: negative order total %s", orderTotal))
	}
	switch p := plan.(type) {
	case Single:
		return r.reconcileSingle(p)
	case Split:
		return r.reconcileSplit(p, orderTotal)
	case nil:
		return Result{}, errors.New("settlement plan is required")
	default:
		panic(fmt.Sprintf("settlement: unknown plan type %T", plan))
	}
}

func (r *Reconciler) reconcileSingle(p Single) (Result, error) {
	m, err := r.method(p.MethodID)
	if err != nil {
		return Result{}, err
	}
	if _, err := normalizeInstallments(m, p.Installments); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Remaining: decimal.Zero}, nil
}

func (r *Reconciler) reconcileSplit(p Split, orderTotal decimal.Decimal) (Result, error) {
	if len(p.Allocations) == 0 {
		return Result{
			OK:        false,
			Remaining: orderTotal,
			Reason:    fmt.Sprintf("split is short by %s", orderTotal),
		}, nil
	}
	seen := make(map[uuid.UUID]struct{}, len(p.Allocations))
	sum := decimal.Zero
	for _, alloc := range p.Allocations {
		if alloc.Amount.Sign() <= 0 {
			return Result{}, fmt.Errorf("method %s: %w", alloc.MethodID, ErrNonPositiveAmount)
		}
		if _, dup := seen[alloc.MethodID]; dup {
			return Result{}, fmt.Errorf("method %s: %w", alloc.MethodID, ErrDuplicateMethod)
		}
		seen[alloc.MethodID] = struct{}{}
		m, err := r.method(alloc.MethodID)
		if err != nil {
			return Result{}, err
		}
		if _, err := normalizeInstallments(m, alloc.Installments); err != nil {
			return Result{}, err
		}
		sum = sum.Add(alloc.Amount)
	}
	remaining := orderTotal.Sub(sum)
	if remaining.Abs().LessThanOrEqual(r.epsilon()) {
		return Result{OK: true, Remaining: decimal.Zero}, nil
	}
	reason := fmt.Sprintf("split is short by %s", remaining)
	if remaining.Sign() < 0 {
		reason = fmt.Sprintf("split is over by %s", remaining.Neg())
	}
	return Result{OK: false, Remaining: remaining, Reason: reason}, nil
}

// Allocations expands a plan into the normalized allocation rows to
// persist: a Single plan becomes one allocation covering the whole total,
// and installment counts come out normalized per method.
func (r *Reconciler) Allocations(plan Plan, orderTotal decimal.Decimal) ([]Allocation, error) {
	switch p := plan.(type) {
	case Single:
		m, err := r.method(p.MethodID)
		if err != nil {
			return nil, err
		}
		installments, err := normalizeInstallments(m, p.Installments)
		if err != nil {
			return nil, err
		}
		return []Allocation{{MethodID: p.MethodID, Amount: orderTotal, Installments: installments}}, nil
	case Split:
		out := make([]Allocation, 0, len(p.Allocations))
		for _, alloc := range p.Allocations {
			m, err := r.method(alloc.MethodID)
			if err != nil {
				return nil, err
			}
			installments, err := normalizeInstallments(m, alloc.Installments)
			if err != nil {
				return nil, err
			}
			alloc.Installments = installments
			out = append(out, alloc)
		}
		return out, nil
	case nil:
		return nil, errors.New("settlement plan is required")
	default:
		panic(fmt.Sprintf("settlement: unknown plan type %T", plan))
	}
}

// AddAllocation validates the allocation and merges it into the split,
// rejecting eagerly when the running sum would exceed the order total beyond
// epsilon. The input split is not mutated.
func (r *Reconciler) AddAllocation(p Split, alloc Allocation, orderTotal decimal.Decimal) (Split, error) {
	if alloc.Amount.Sign() <= 0 {
		return Split{}, fmt.Errorf("method %s: %w", alloc.MethodID, ErrNonPositiveAmount)
	}
	m, err := r.method(alloc.MethodID)
	if err != nil {
		return Split{}, err
	}
	installments, err := normalizeInstallments(m, alloc.Installments)
	if err != nil {
		return Split{}, err
	}
	alloc.Installments = installments

	merged := false
	out := Split{Allocations: make([]Allocation, 0, len(p.Allocations)+1)}
	for _, existing := range p.Allocations {
		if existing.MethodID == alloc.MethodID {
			existing.Amount = existing.Amount.Add(alloc.Amount)
			existing.Installments = installments
			merged = true
		}
		out.Allocations = append(out.Allocations, existing)
	}
	if !merged {
		out.Allocations = append(out.Allocations, alloc)
	}
	sum := decimal.Zero
	for _, a := range out.Allocations {
		sum = sum.Add(a.Amount)
	}
	if sum.Sub(orderTotal).GreaterThan(r.epsilon()) {
		return Split{}, fmt.Errorf("%w: allocated %s of %s", ErrOverAllocated, sum, orderTotal)
	}
	return out, nil
}

// RemoveAllocation drops the allocation for the method and returns the new
// split with the recomputed remainder.
func (r *Reconciler) RemoveAllocation(p Split, methodID uuid.UUID, orderTotal decimal.Decimal) (Split, Result) {
	out := Split{Allocations: make([]Allocation, 0, len(p.Allocations))}
	for _, alloc := range p.Allocations {
		if alloc.MethodID != methodID {
			out.Allocations = append(out.Allocations, alloc)
		}
	}
	sum := decimal.Zero
	for _, alloc := range out.Allocations {
		sum = sum.Add(alloc.Amount)
	}
	remaining := orderTotal.Sub(sum)
	res := Result{Remaining: remaining}
	if remaining.Abs().LessThanOrEqual(r.epsilon()) {
		res.OK = true
		res.Remaining = decimal.Zero
	} else if remaining.Sign() > 0 {
		res.Reason = fmt.Sprintf("split is short by %s", remaining)
	} else {
		res.Reason = fmt.Sprintf("split is over by %s", remaining.Neg())
	}
	return out, res
}

// normalizeInstallments validates the count against the method: capable
// methods default to 1 and must stay within [1, MaxInstallments]; for other
// methods the count is dropped.
func normalizeInstallments(m Method, installments int32) (int32, error) {
	if !m.SupportsInstallments() {
		return 0, nil
	}
	if installments == 0 {
		return 1, nil
	}
	if installments < 1 || installments > m.MaxInstallments {
		return 0, fmt.Errorf("method %s allows 1..%d installments, got %d: %w",
			m.Name, m.MaxInstallments, installments, ErrInstallmentsOutOfRange)
	}
	return installments, nil
}
