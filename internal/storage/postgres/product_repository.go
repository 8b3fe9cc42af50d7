package postgres

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

type productRepository struct {
	q querier
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO products (code, description, unit_price)
		VALUES ($1, $2, $3)
		RETURNING id
	`, product.Code, product.Description, product.UnitPrice).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, product domain.Product) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET code = $2, description = $3, unit_price = $4
		WHERE id = $1
	`, product.ID, product.Code, product.Description, product.UnitPrice)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("update product: %w", err)
	}
	return expectAffected(res, "update product")
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectAffected(res, "delete product")
}

func (r *productRepository) GetByCode(ctx context.Context, code string) (domain.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var p domain.Product
	err := r.q.QueryRowContext(ctx, `
		SELECT id, code, description, unit_price
		FROM products
		WHERE code = $1
	`, code).Scan(&p.ID, &p.Code, &p.Description, &p.UnitPrice)
	if err != nil {
		if isNoRows(err) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

// ListByCodes загружает товары одним запросом.
func (r *productRepository) ListByCodes(ctx context.Context, codes []string) ([]domain.Product, error) {
	if len(codes) == 0 {
		return []domain.Product{}, nil
	}
	return r.list(ctx, `
		SELECT id, code, description, unit_price
		FROM products
		WHERE code = ANY($1)
		ORDER BY id
	`, codes)
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	return r.list(ctx, `SELECT id, code, description, unit_price FROM products ORDER BY id`)
}

func (r *productRepository) list(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Description, &p.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return result, nil
}

func (r *productRepository) CodeTaken(ctx context.Context, code string, excludeID int64) (bool, error) {
	return exists(ctx, r.q, `SELECT EXISTS (SELECT 1 FROM products WHERE code = $1 AND id <> $2)`, code, excludeID)
}

var _ domain.ProductRepository = (*productRepository)(nil)
