package postgres

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

type orderRepository struct {
	q querier
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO orders (order_date, customer_code, total)
		VALUES ($1, $2, $3)
		RETURNING id
	`, order.OrderDate, order.CustomerCode, order.Total).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id int64, withLines bool) (domain.Order, error) {
	queryCtx, cancel := withTimeout(ctx)
	defer cancel()

	var order domain.Order
	err := r.q.QueryRowContext(queryCtx, `
		SELECT id, order_date, customer_code, total
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.OrderDate, &order.CustomerCode, &order.Total)
	if err != nil {
		if isNoRows(err) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.OrderDate = order.OrderDate.UTC()

	if !withLines {
		return order, nil
	}

	lines, err := r.selectLines(ctx, `WHERE order_id = $1`, id)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines
	return order, nil
}

// List загружает заголовки и позиции двумя запросами, без N+1.
func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	queryCtx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.q.QueryContext(queryCtx, `
		SELECT id, order_date, customer_code, total
		FROM orders
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.OrderDate, &o.CustomerCode, &o.Total); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.OrderDate = o.OrderDate.UTC()
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := r.selectLines(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if i, ok := index[line.OrderID]; ok {
			orders[i].Lines = append(orders[i].Lines, line)
		}
	}
	return orders, nil
}

func (r *orderRepository) selectLines(ctx context.Context, where string, args ...any) ([]domain.OrderLine, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, order_id, product_code, product_description, quantity, unit_price, subtotal
		FROM order_lines `+where+`
		ORDER BY order_id, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(
			&l.ID,
			&l.OrderID,
			&l.ProductCode,
			&l.ProductDescription,
			&l.Quantity,
			&l.UnitPrice,
			&l.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

func (r *orderRepository) UpdateHeader(ctx context.Context, order domain.Order) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET order_date = $2, customer_code = $3, total = $4
		WHERE id = $1
	`, order.ID, order.OrderDate, order.CustomerCode, order.Total)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return expectAffected(res, "update order")
}

// InsertLines пишет позиции по одной, чтобы получить их ID в порядке вставки.
func (r *orderRepository) InsertLines(ctx context.Context, orderID int64, lines []domain.OrderLine) error {
	for i := range lines {
		line := &lines[i]
		line.OrderID = orderID

		queryCtx, cancel := withTimeout(ctx)
		err := r.q.QueryRowContext(queryCtx, `
			INSERT INTO order_lines (
				order_id, product_code, product_description, quantity, unit_price, subtotal
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`,
			orderID, line.ProductCode, line.ProductDescription, line.Quantity, line.UnitPrice, line.Subtotal,
		).Scan(&line.ID)
		cancel()
		if err != nil {
			return fmt.Errorf("insert order line %d: %w", i, err)
		}
	}
	return nil
}

func (r *orderRepository) DeleteLines(ctx context.Context, orderID int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := r.q.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}
	return nil
}

// Delete удаляет заказ; позиции удаляются каскадом по внешнему ключу.
func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return expectAffected(res, "delete order")
}

func (r *orderRepository) ExistsForCustomer(ctx context.Context, customerCode string) (bool, error) {
	return exists(ctx, r.q, `SELECT EXISTS (SELECT 1 FROM orders WHERE customer_code = $1)`, customerCode)
}

func (r *orderRepository) ExistsForProduct(ctx context.Context, productCode string) (bool, error) {
	return exists(ctx, r.q, `SELECT EXISTS (SELECT 1 FROM order_lines WHERE product_code = $1)`, productCode)
}

var _ domain.OrderRepository = (*orderRepository)(nil)
