package domain

import "github.com/shopspring/decimal"

// CreateOrderCommand: запрос на создание заказа.
type CreateOrderCommand struct {
	CustomerCode string
	Items        []OrderItem
}

// UpdateOrderCommand: запрос на полную замену заказа.
type UpdateOrderCommand struct {
	OrderID      int64
	CustomerCode string
	Items        []OrderItem
}

// CreateCustomerCommand: запрос на регистрацию клиента.
type CreateCustomerCommand struct {
	Code       string
	Name       string
	NationalID string
}

// UpdateCustomerCommand: запрос на изменение клиента по идентификатору.
type UpdateCustomerCommand struct {
	ID         int64
	Code       string
	Name       string
	NationalID string
}

// CreateProductCommand: запрос на добавление товара в каталог.
type CreateProductCommand struct {
	Code        string
	Description string
	UnitPrice   decimal.Decimal
}

// UpdateProductCommand изменяет товар, найденный по CurrentCode; Code может переименовать товар.
type UpdateProductCommand struct {
	CurrentCode string
	Code        string
	Description string
	UnitPrice   decimal.Decimal
}
