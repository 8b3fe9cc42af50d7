package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

// orderRepository хранит заголовки и позиции раздельно, как реляционное хранилище.
type orderRepository struct {
	scope scope
}

// Create сохраняет заголовок заказа; позиции добавляются через InsertLines.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.scope.write(ctx, func(st *state) error {
		st.nextOrderID++
		order.ID = st.nextOrderID
		header := *order
		header.Lines = nil
		st.orders[order.ID] = header
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, id int64, withLines bool) (domain.Order, error) {
	var found domain.Order
	err := r.scope.read(ctx, func(st *state) error {
		order, ok := st.orders[id]
		if !ok {
			return domain.ErrNotFound
		}
		if withLines {
			order.Lines = append([]domain.OrderLine{}, st.lines[id]...)
		}
		found = order
		return nil
	})
	return found, err
}

func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	result := make([]domain.Order, 0)
	err := r.scope.read(ctx, func(st *state) error {
		for id, order := range st.orders {
			order.Lines = append([]domain.OrderLine{}, st.lines[id]...)
			result = append(result, order)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, err
}

func (r *orderRepository) UpdateHeader(ctx context.Context, order domain.Order) error {
	return r.scope.write(ctx, func(st *state) error {
		if _, ok := st.orders[order.ID]; !ok {
			return domain.ErrNotFound
		}
		order.Lines = nil
		st.orders[order.ID] = order
		return nil
	})
}

// InsertLines добавляет позиции к существующему заказу в заданном порядке.
func (r *orderRepository) InsertLines(ctx context.Context, orderID int64, lines []domain.OrderLine) error {
	return r.scope.write(ctx, func(st *state) error {
		if _, ok := st.orders[orderID]; !ok {
			return domain.ErrNotFound
		}
		for i := range lines {
			st.nextLineID++
			lines[i].ID = st.nextLineID
			lines[i].OrderID = orderID
			st.lines[orderID] = append(st.lines[orderID], lines[i])
		}
		return nil
	})
}

func (r *orderRepository) DeleteLines(ctx context.Context, orderID int64) error {
	return r.scope.write(ctx, func(st *state) error {
		delete(st.lines, orderID)
		return nil
	})
}

// Delete удаляет заказ и каскадно его позиции.
func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	return r.scope.write(ctx, func(st *state) error {
		if _, ok := st.orders[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.orders, id)
		delete(st.lines, id)
		return nil
	})
}

func (r *orderRepository) ExistsForCustomer(ctx context.Context, customerCode string) (bool, error) {
	var exists bool
	err := r.scope.read(ctx, func(st *state) error {
		for _, order := range st.orders {
			if order.CustomerCode == customerCode {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (r *orderRepository) ExistsForProduct(ctx context.Context, productCode string) (bool, error) {
	var exists bool
	err := r.scope.read(ctx, func(st *state) error {
		for _, lines := range st.lines {
			for _, line := range lines {
				if line.ProductCode == productCode {
					exists = true
					return nil
				}
			}
		}
		return nil
	})
	return exists, err
}

var _ domain.OrderRepository = (*orderRepository)(nil)
