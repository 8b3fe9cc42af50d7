package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

type customerRepository struct {
	scope scope
}

// Create сохраняет клиента, проверяя уникальность кода и DNI.
func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	return r.scope.write(ctx, func(st *state) error {
		if customerTaken(st, customer.Code, customer.NationalID, 0) {
			return domain.ErrDuplicateKey
		}
		st.nextCustomerID++
		customer.ID = st.nextCustomerID
		st.customers[customer.ID] = *customer
		return nil
	})
}

func (r *customerRepository) Update(ctx context.Context, customer domain.Customer) error {
	return r.scope.write(ctx, func(st *state) error {
		if _, ok := st.customers[customer.ID]; !ok {
			return domain.ErrNotFound
		}
		if customerTaken(st, customer.Code, customer.NationalID, customer.ID) {
			return domain.ErrDuplicateKey
		}
		st.customers[customer.ID] = customer
		return nil
	})
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	return r.scope.write(ctx, func(st *state) error {
		if _, ok := st.customers[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.customers, id)
		return nil
	})
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (domain.Customer, error) {
	var found domain.Customer
	err := r.scope.read(ctx, func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return domain.ErrNotFound
		}
		found = c
		return nil
	})
	return found, err
}

func (r *customerRepository) GetByCode(ctx context.Context, code string) (domain.Customer, error) {
	var found domain.Customer
	err := r.scope.read(ctx, func(st *state) error {
		for _, c := range st.customers {
			if c.Code == code {
				found = c
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return found, err
}

func (r *customerRepository) ListByCodes(ctx context.Context, codes []string) ([]domain.Customer, error) {
	wanted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		wanted[code] = struct{}{}
	}

	var result []domain.Customer
	err := r.scope.read(ctx, func(st *state) error {
		for _, c := range st.customers {
			if _, ok := wanted[c.Code]; ok {
				result = append(result, c)
			}
		}
		return nil
	})
	sortCustomers(result)
	return result, err
}

func (r *customerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	result := make([]domain.Customer, 0)
	err := r.scope.read(ctx, func(st *state) error {
		for _, c := range st.customers {
			result = append(result, c)
		}
		return nil
	})
	sortCustomers(result)
	return result, err
}

func (r *customerRepository) CodeTaken(ctx context.Context, code string, excludeID int64) (bool, error) {
	var taken bool
	err := r.scope.read(ctx, func(st *state) error {
		for id, c := range st.customers {
			if id != excludeID && c.Code == code {
				taken = true
				break
			}
		}
		return nil
	})
	return taken, err
}

func (r *customerRepository) NationalIDTaken(ctx context.Context, nationalID string, excludeID int64) (bool, error) {
	var taken bool
	err := r.scope.read(ctx, func(st *state) error {
		for id, c := range st.customers {
			if id != excludeID && c.NationalID == nationalID {
				taken = true
				break
			}
		}
		return nil
	})
	return taken, err
}

// customerTaken эмулирует unique-ограничения на code и national_id.
func customerTaken(st *state, code, nationalID string, excludeID int64) bool {
	for id, c := range st.customers {
		if id == excludeID {
			continue
		}
		if c.Code == code || c.NationalID == nationalID {
			return true
		}
	}
	return false
}

func sortCustomers(customers []domain.Customer) {
	sort.Slice(customers, func(i, j int) bool { return customers[i].ID < customers[j].ID })
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
