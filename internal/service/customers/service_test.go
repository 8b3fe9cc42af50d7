package customers_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
	"github.com/vladislavdragonenkov/ordersvc/internal/service/customers"
	"github.com/vladislavdragonenkov/ordersvc/internal/storage/memory"
)

func newService(store domain.Store) *customers.Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return customers.NewService(store, nil, logger.WithField("component", "test"))
}

func placeOrder(t *testing.T, store domain.Store, customerCode string) {
	t.Helper()
	ctx := context.Background()

	order := domain.Order{OrderDate: time.Now().UTC(), CustomerCode: customerCode, Total: decimal.NewFromInt(10)}
	require.NoError(t, store.Orders().Create(ctx, &order))
	require.NoError(t, store.Orders().InsertLines(ctx, order.ID, []domain.OrderLine{{
		ProductCode: "P001",
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(10),
		Subtotal:    decimal.NewFromInt(10),
	}}))
}

func TestService_CreateAndGet(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	id, err := svc.Create(ctx, domain.CreateCustomerCommand{Code: "C001", Name: "Ana", NationalID: "12345678"})
	require.NoError(t, err)
	require.Positive(t, id)

	customer, err := svc.Get(ctx, "C001")
	require.NoError(t, err)
	require.Equal(t, id, customer.ID)
	require.Equal(t, "Ana", customer.Name)

	_, err = svc.Get(ctx, "C404")
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestService_CreateConflicts(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerCommand{Code: "C001", Name: "Ana", NationalID: "12345678"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateCustomerCommand{Code: "C001", Name: "Other", NationalID: "11111111"})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Create(ctx, domain.CreateCustomerCommand{Code: "C002", Name: "Other", NationalID: "12345678"})
	require.ErrorIs(t, err, domain.ErrConflict)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestService_Update(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.CreateCustomerCommand{Code: "C001", Name: "Ana", NationalID: "12345678"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateCustomerCommand{Code: "C002", Name: "Luis", NationalID: "87654321"})
	require.NoError(t, err)

	// Сохранение собственных кода и DNI не считается конфликтом.
	require.NoError(t, svc.Update(ctx, domain.UpdateCustomerCommand{ID: first, Code: "C001", Name: "Ana Maria", NationalID: "12345678"}))

	err = svc.Update(ctx, domain.UpdateCustomerCommand{ID: first, Code: "C002", Name: "Ana", NationalID: "12345678"})
	require.ErrorIs(t, err, domain.ErrConflict)

	err = svc.Update(ctx, domain.UpdateCustomerCommand{ID: 999, Code: "C009", Name: "Ghost", NationalID: "99999999"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	customer, err := svc.Get(ctx, "C001")
	require.NoError(t, err)
	require.Equal(t, "Ana Maria", customer.Name)
}

func TestService_DeleteGuardedByOrders(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	withOrders, err := svc.Create(ctx, domain.CreateCustomerCommand{Code: "C001", Name: "Ana", NationalID: "12345678"})
	require.NoError(t, err)
	withoutOrders, err := svc.Create(ctx, domain.CreateCustomerCommand{Code: "C002", Name: "Luis", NationalID: "87654321"})
	require.NoError(t, err)
	placeOrder(t, store, "C001")

	require.NoError(t, svc.Delete(ctx, withoutOrders))

	err = svc.Delete(ctx, withOrders)
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Get(ctx, "C001")
	require.NoError(t, err)

	err = svc.Delete(ctx, withoutOrders)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_UpdateCodeBlockedByOrders(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	id, err := svc.Create(ctx, domain.CreateCustomerCommand{Code: "C001", Name: "Ana", NationalID: "12345678"})
	require.NoError(t, err)
	placeOrder(t, store, "C001")

	err = svc.Update(ctx, domain.UpdateCustomerCommand{ID: id, Code: "C999", Name: "Ana", NationalID: "12345678"})
	require.ErrorIs(t, err, domain.ErrConflict)

	// Остальные поля клиента с заказами менять можно.
	require.NoError(t, svc.Update(ctx, domain.UpdateCustomerCommand{ID: id, Code: "C001", Name: "Ana Maria", NationalID: "12345678"}))

	_, err = svc.Get(ctx, "C999")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, id), domain.ErrConflict)

	exists, err := store.Orders().ExistsForCustomer(ctx, "C001")
	require.NoError(t, err)
	require.True(t, exists)
}
