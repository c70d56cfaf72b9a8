package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-vendas/internal/order"
	"github.com/noah-isme/backend-vendas/internal/settlement"
	"github.com/noah-isme/backend-vendas/internal/stock"
)

// OrderRepo persists draft order sessions and runs the finalize
// transaction.
type OrderRepo struct {
	Pool *pgxpool.Pool
}

// CreateDraft opens a new empty draft for the customer.
func (r OrderRepo) CreateDraft(ctx context.Context, customerID uuid.UUID) (order.Order, error) {
	var o order.Order
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO orders (customer_id, status)
		VALUES ($1, 'draft')
		RETURNING id, customer_id, status, term_rule_id, value_rule_id, created_at, finalized_at
	`, customerID).Scan(&o.ID, &o.CustomerID, &o.Status, &o.TermRuleID, &o.ValueRuleID, &o.CreatedAt, &o.FinalizedAt)
	if err != nil {
		return order.Order{}, fmt.Errorf("create draft: %w", err)
	}
	return o, nil
}

// Get loads an order with its lines.
func (r OrderRepo) Get(ctx context.Context, orderID uuid.UUID) (order.Order, error) {
	return getOrderQ(ctx, r.Pool, orderID)
}

func getOrderQ(ctx context.Context, q Querier, orderID uuid.UUID) (order.Order, error) {
	var o order.Order
	err := q.QueryRow(ctx, `
		SELECT id, customer_id, status, term_rule_id, value_rule_id, created_at, finalized_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(&o.ID, &o.CustomerID, &o.Status, &o.TermRuleID, &o.ValueRuleID, &o.CreatedAt, &o.FinalizedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, fmt.Errorf("order %s: %w", orderID, order.ErrNotFound)
		}
		return order.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	lines, err := listLinesQ(ctx, q, orderID)
	if err != nil {
		return order.Order{}, err
	}
	o.Lines = lines
	return o, nil
}

func listLinesQ(ctx context.Context, q Querier, orderID uuid.UUID) ([]order.Line, error) {
	rows, err := q.Query(ctx, `
		SELECT ol.id, ol.product_id, p.name, ol.quantity, ol.unit_price, ol.original_price, ol.applied, ol.note
		FROM order_lines ol
		JOIN products p ON p.id = ol.product_id
		WHERE ol.order_id = $1
		ORDER BY ol.created_at, ol.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	var lines []order.Line
	for rows.Next() {
		var l order.Line
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.OriginalPrice, &l.Applied, &l.Note); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// InsertLine appends a line to a draft.
func (r OrderRepo) InsertLine(ctx context.Context, orderID uuid.UUID, line order.Line) (order.Line, error) {
	if err := r.requireDraft(ctx, orderID); err != nil {
		return order.Line{}, err
	}
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO order_lines (order_id, product_id, quantity, unit_price, original_price, applied, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, orderID, line.ProductID, line.Quantity, line.UnitPrice, line.OriginalPrice, line.Applied, line.Note).Scan(&line.ID)
	if err != nil {
		return order.Line{}, fmt.Errorf("insert order line: %w", err)
	}
	return line, nil
}

// UpdateLine rewrites the quantity and captured prices of a draft line.
func (r OrderRepo) UpdateLine(ctx context.Context, orderID uuid.UUID, line order.Line) error {
	if err := r.requireDraft(ctx, orderID); err != nil {
		return err
	}
	tag, err := r.Pool.Exec(ctx, `
		UPDATE order_lines
		SET quantity = $1, unit_price = $2, original_price = $3, applied = $4, note = $5
		WHERE id = $6 AND order_id = $7
	`, line.Quantity, line.UnitPrice, line.OriginalPrice, line.Applied, line.Note, line.ID, orderID)
	if err != nil {
		return fmt.Errorf("update order line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order line %s: %w", line.ID, order.ErrNotFound)
	}
	return nil
}

// DeleteLine removes a draft line, releasing its backlog reservation.
func (r OrderRepo) DeleteLine(ctx context.Context, orderID, lineID uuid.UUID) error {
	if err := r.requireDraft(ctx, orderID); err != nil {
		return err
	}
	tag, err := r.Pool.Exec(ctx, `
		DELETE FROM order_lines WHERE id = $1 AND order_id = $2
	`, lineID, orderID)
	if err != nil {
		return fmt.Errorf("delete order line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order line %s: %w", lineID, order.ErrNotFound)
	}
	return nil
}

// SetRuleSelection stores the chosen term and value rule ids, either of
// which may be nil to clear the selection.
func (r OrderRepo) SetRuleSelection(ctx context.Context, orderID uuid.UUID, termRuleID, valueRuleID *uuid.UUID) error {
	if err := r.requireDraft(ctx, orderID); err != nil {
		return err
	}
	_, err := r.Pool.Exec(ctx, `
		UPDATE orders SET term_rule_id = $1, value_rule_id = $2 WHERE id = $3
	`, termRuleID, valueRuleID, orderID)
	if err != nil {
		return fmt.Errorf("set rule selection: %w", err)
	}
	return nil
}

// Cancel marks a draft cancelled; its lines stop counting as backlog.
func (r OrderRepo) Cancel(ctx context.Context, orderID uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE orders SET status = 'cancelled' WHERE id = $1 AND status = 'draft'
	`, orderID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.draftGone(ctx, orderID)
	}
	return nil
}

// ExpireDrafts cancels drafts created before the cutoff, releasing their
// backlog reservations in one statement.
func (r OrderRepo) ExpireDrafts(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE orders SET status = 'cancelled'
		WHERE status = 'draft' AND created_at < NOW() - make_interval(secs => $1)
	`, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("expire drafts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Finalize turns a draft into an immutable order in one transaction: it
// locks the draft, re-checks stock for every line under the given policy,
// writes the totals and allocations, and records the exit movements. A
// shortage rolls everything back and surfaces as *order.ShortageError.
func (r OrderRepo) Finalize(ctx context.Context, orderID uuid.UUID, totals order.Totals, allocations []settlement.Allocation, policy stock.Policy) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback(ctx)

	var status order.Status
	err = tx.QueryRow(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("order %s: %w", orderID, order.ErrNotFound)
		}
		return fmt.Errorf("lock order %s: %w", orderID, err)
	}
	if status != order.StatusDraft {
		return fmt.Errorf("order %s: %w", orderID, order.ErrNotDraft)
	}

	lines, err := listLinesQ(ctx, tx, orderID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		balance, err := balanceQ(ctx, tx, line.ProductID)
		if err != nil {
			return err
		}
		reserved, err := reservedQ(ctx, tx, line.ProductID)
		if err != nil {
			return err
		}
		// The line's own reservation must not count against itself.
		res := stock.Check(balance, reserved, line.Quantity, line.Quantity, policy)
		if !res.Allowed {
			return &order.ShortageError{ProductID: line.ProductID, Result: res}
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = 'final', subtotal = $1, discount_amount = $2,
		    surcharge_amount = $3, total = $4, finalized_at = NOW()
		WHERE id = $5
	`, totals.Subtotal, totals.DiscountAmount, totals.SurchargeAmount, totals.Total, orderID)
	if err != nil {
		return fmt.Errorf("finalize order %s: %w", orderID, err)
	}

	for _, alloc := range allocations {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_payments (order_id, method_id, amount, installments)
			VALUES ($1, $2, $3, $4)
		`, orderID, alloc.MethodID, alloc.Amount, alloc.Installments)
		if err != nil {
			return fmt.Errorf("insert order payment: %w", err)
		}
	}

	for _, line := range lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO stock_movements (product_id, direction, quantity, order_id)
			VALUES ($1, 'exit', $2, $3)
		`, line.ProductID, line.Quantity, orderID)
		if err != nil {
			return fmt.Errorf("insert exit movement: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit finalize: %w", err)
	}
	return nil
}

func (r OrderRepo) requireDraft(ctx context.Context, orderID uuid.UUID) error {
	var status order.Status
	err := r.Pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("order %s: %w", orderID, order.ErrNotFound)
		}
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	if status != order.StatusDraft {
		return fmt.Errorf("order %s: %w", orderID, order.ErrNotDraft)
	}
	return nil
}

func (r OrderRepo) draftGone(ctx context.Context, orderID uuid.UUID) error {
	if err := r.requireDraft(ctx, orderID); err != nil {
		return err
	}
	return fmt.Errorf("order %s: %w", orderID, order.ErrNotFound)
}
