package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

const opTimeout = 5 * time.Second

// withTimeout ограничивает отдельный запрос, сохраняя отмену родительского ctx.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

type customerRepository struct {
	q querier
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO customers (code, name, national_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, customer.Code, customer.Name, customer.NationalID).Scan(&customer.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *customerRepository) Update(ctx context.Context, customer domain.Customer) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE customers
		SET code = $2, name = $3, national_id = $4
		WHERE id = $1
	`, customer.ID, customer.Code, customer.Name, customer.NationalID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("update customer: %w", err)
	}
	return expectAffected(res, "update customer")
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return expectAffected(res, "delete customer")
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (domain.Customer, error) {
	return r.getOne(ctx, `SELECT id, code, name, national_id FROM customers WHERE id = $1`, id)
}

func (r *customerRepository) GetByCode(ctx context.Context, code string) (domain.Customer, error) {
	return r.getOne(ctx, `SELECT id, code, name, national_id FROM customers WHERE code = $1`, code)
}

func (r *customerRepository) getOne(ctx context.Context, query string, arg any) (domain.Customer, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var c domain.Customer
	if err := r.q.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Code, &c.Name, &c.NationalID); err != nil {
		if isNoRows(err) {
			return domain.Customer{}, domain.ErrNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return c, nil
}

func (r *customerRepository) ListByCodes(ctx context.Context, codes []string) ([]domain.Customer, error) {
	if len(codes) == 0 {
		return []domain.Customer{}, nil
	}
	return r.list(ctx, `
		SELECT id, code, name, national_id
		FROM customers
		WHERE code = ANY($1)
		ORDER BY id
	`, codes)
}

func (r *customerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	return r.list(ctx, `SELECT id, code, name, national_id FROM customers ORDER BY id`)
}

func (r *customerRepository) list(ctx context.Context, query string, args ...any) ([]domain.Customer, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Customer, 0)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.NationalID); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return result, nil
}

func (r *customerRepository) CodeTaken(ctx context.Context, code string, excludeID int64) (bool, error) {
	return exists(ctx, r.q, `SELECT EXISTS (SELECT 1 FROM customers WHERE code = $1 AND id <> $2)`, code, excludeID)
}

func (r *customerRepository) NationalIDTaken(ctx context.Context, nationalID string, excludeID int64) (bool, error) {
	return exists(ctx, r.q, `SELECT EXISTS (SELECT 1 FROM customers WHERE national_id = $1 AND id <> $2)`, nationalID, excludeID)
}

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var found bool
	if err := q.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return found, nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectAffected(res rowsAffected, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", op, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
