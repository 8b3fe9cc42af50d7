// Package validation выполняет структурные проверки команд до вызова бизнес-логики.
// Проверки, требующие обращения к хранилищу, здесь не выполняются.
package validation

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

const (
	MaxCustomerCodeLength = 20
	MaxProductCodeLength  = 20
	MaxCustomerNameLength = 100
	MaxDescriptionLength  = 200
)

// rules накапливает сообщения об ошибках в порядке проверки.
type rules struct {
	messages []string
}

func (r *rules) failf(format string, args ...any) {
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *rules) required(field, value string) bool {
	if isBlank(value) {
		r.failf("%s is required", field)
		return false
	}
	return true
}

func (r *rules) maxLength(field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		r.failf("%s must be at most %d characters", field, limit)
	}
}

func (r *rules) result() error {
	if len(r.messages) == 0 {
		return nil
	}
	return domain.NewValidationError(r.messages)
}

// CreateOrder проверяет команду создания заказа.
func CreateOrder(cmd domain.CreateOrderCommand) error {
	var r rules
	orderFields(&r, cmd.CustomerCode, cmd.Items)
	return r.result()
}

// UpdateOrder проверяет команду обновления заказа.
func UpdateOrder(cmd domain.UpdateOrderCommand) error {
	var r rules
	if cmd.OrderID <= 0 {
		r.failf("order_id must be greater than zero")
	}
	orderFields(&r, cmd.CustomerCode, cmd.Items)
	return r.result()
}

func orderFields(r *rules, customerCode string, items []domain.OrderItem) {
	if r.required("customer_code", customerCode) {
		r.maxLength("customer_code", customerCode, MaxCustomerCodeLength)
	}
	if len(items) == 0 {
		r.failf("items must contain at least one item")
	}
	for i, item := range items {
		field := fmt.Sprintf("items[%d].product_code", i)
		if r.required(field, item.ProductCode) {
			r.maxLength(field, item.ProductCode, MaxProductCodeLength)
		}
		if item.Quantity <= 0 {
			r.failf("items[%d].quantity must be greater than zero", i)
		} else if item.Quantity > domain.MaxQuantity {
			r.failf("items[%d].quantity must be at most %d", i, domain.MaxQuantity)
		}
	}
}

// CreateCustomer проверяет команду регистрации клиента.
func CreateCustomer(cmd domain.CreateCustomerCommand) error {
	var r rules
	customerFields(&r, cmd.Code, cmd.Name, cmd.NationalID)
	return r.result()
}

// UpdateCustomer проверяет команду изменения клиента.
func UpdateCustomer(cmd domain.UpdateCustomerCommand) error {
	var r rules
	if cmd.ID <= 0 {
		r.failf("id must be greater than zero")
	}
	customerFields(&r, cmd.Code, cmd.Name, cmd.NationalID)
	return r.result()
}

func customerFields(r *rules, code, name, nationalID string) {
	if r.required("code", code) {
		r.maxLength("code", code, MaxCustomerCodeLength)
	}
	if r.required("name", name) {
		r.maxLength("name", name, MaxCustomerNameLength)
	}
	if r.required("national_id", nationalID) && !isDigits(nationalID, domain.NationalIDLength) {
		r.failf("national_id must be exactly %d digits", domain.NationalIDLength)
	}
}

// CreateProduct проверяет команду добавления товара.
func CreateProduct(cmd domain.CreateProductCommand) error {
	var r rules
	productFields(&r, cmd.Code, cmd.Description, cmd.UnitPrice)
	return r.result()
}

// UpdateProduct проверяет команду изменения товара.
func UpdateProduct(cmd domain.UpdateProductCommand) error {
	var r rules
	r.required("current_code", cmd.CurrentCode)
	productFields(&r, cmd.Code, cmd.Description, cmd.UnitPrice)
	return r.result()
}

func productFields(r *rules, code, description string, unitPrice decimal.Decimal) {
	if r.required("code", code) {
		r.maxLength("code", code, MaxProductCodeLength)
	}
	if r.required("description", description) {
		r.maxLength("description", description, MaxDescriptionLength)
	}
	if unitPrice.IsNegative() {
		r.failf("unit_price must be greater than or equal to zero")
	} else if !domain.HasValidScale(unitPrice) {
		r.failf("unit_price must have at most %d decimal places", domain.PriceScale)
	} else if unitPrice.GreaterThan(domain.MaxAmount) {
		r.failf("unit_price must be at most %s", domain.MaxAmount.StringFixed(domain.PriceScale))
	}
}

func isBlank(s string) bool {
	for _, c := range s {
		if !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
