package domain

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// Ошибка отсутствующего кода клиента в заказе.
	ErrCustomerCodeRequired = errors.New("customer_code is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrLineQtyInvalid = errors.New("line quantity must be greater than zero")
	// Ошибка, если цена позиции не положительная.
	ErrLinePriceInvalid = errors.New("line unit price must be greater than zero")
	// Ошибка несоответствия subtotal позиции произведению цены на количество.
	ErrLineSubtotalMismatch = errors.New("line subtotal does not match unit price * quantity")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match lines sum")
)

// MaxQuantity: наибольшее количество товара в позиции (колонка INTEGER).
const MaxQuantity = math.MaxInt32

// OrderItem: одна позиция входящего запроса: код товара и количество.
type OrderItem struct {
	ProductCode string
	Quantity    int
}

// OrderLine: позиция заказа со снимком товара на момент оформления.
// ProductDescription и UnitPrice не связаны с каталогом и не меняются вслед за ним.
type OrderLine struct {
	ID                 int64
	OrderID            int64
	ProductCode        string
	ProductDescription string
	Quantity           int
	UnitPrice          decimal.Decimal
	Subtotal           decimal.Decimal
}

// Order агрегирует заголовок заказа и его позиции.
// Клиент связан по бизнес-коду, а не по идентификатору.
type Order struct {
	ID           int64
	OrderDate    time.Time
	CustomerCode string
	Total        decimal.Decimal
	// Lines хранятся в порядке запроса.
	Lines []OrderLine
}

// ValidateInvariants проверяет инварианты заказа перед сохранением и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerCode == "" {
		errs = append(errs, ErrCustomerCodeRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	calc := decimal.Zero
	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if !line.UnitPrice.IsPositive() {
			errs = append(errs, ErrLinePriceInvalid)
		}
		if !line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Equal(line.Subtotal) {
			errs = append(errs, ErrLineSubtotalMismatch)
		}
		calc = calc.Add(line.Subtotal)
	}
	if !calc.Equal(o.Total) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
