package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

type productRepository struct {
	scope scope
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	return r.scope.write(ctx, func(st *state) error {
		if productCodeTaken(st, product.Code, 0) {
			return domain.ErrDuplicateKey
		}
		st.nextProductID++
		product.ID = st.nextProductID
		st.products[product.ID] = *product
		return nil
	})
}

func (r *productRepository) Update(ctx context.Context, product domain.Product) error {
	return r.scope.write(ctx, func(st *state) error {
		if _, ok := st.products[product.ID]; !ok {
			return domain.ErrNotFound
		}
		if productCodeTaken(st, product.Code, product.ID) {
			return domain.ErrDuplicateKey
		}
		st.products[product.ID] = product
		return nil
	})
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	return r.scope.write(ctx, func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.products, id)
		return nil
	})
}

func (r *productRepository) GetByCode(ctx context.Context, code string) (domain.Product, error) {
	var found domain.Product
	err := r.scope.read(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.Code == code {
				found = p
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return found, err
}

func (r *productRepository) ListByCodes(ctx context.Context, codes []string) ([]domain.Product, error) {
	wanted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		wanted[code] = struct{}{}
	}

	var result []domain.Product
	err := r.scope.read(ctx, func(st *state) error {
		for _, p := range st.products {
			if _, ok := wanted[p.Code]; ok {
				result = append(result, p)
			}
		}
		return nil
	})
	sortProducts(result)
	return result, err
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	result := make([]domain.Product, 0)
	err := r.scope.read(ctx, func(st *state) error {
		for _, p := range st.products {
			result = append(result, p)
		}
		return nil
	})
	sortProducts(result)
	return result, err
}

func (r *productRepository) CodeTaken(ctx context.Context, code string, excludeID int64) (bool, error) {
	var taken bool
	err := r.scope.read(ctx, func(st *state) error {
		taken = productCodeTaken(st, code, excludeID)
		return nil
	})
	return taken, err
}

func productCodeTaken(st *state, code string, excludeID int64) bool {
	for id, p := range st.products {
		if id != excludeID && p.Code == code {
			return true
		}
	}
	return false
}

func sortProducts(products []domain.Product) {
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
}

var _ domain.ProductRepository = (*productRepository)(nil)
