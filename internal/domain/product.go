package domain

import "github.com/shopspring/decimal"

// PriceScale: количество знаков после запятой в денежных значениях.
const PriceScale = 2

// MaxAmount: наибольшая денежная сумма, которую вмещает NUMERIC(18, 2).
// Ограничивает цену товара, стоимость позиции и сумму заказа.
var MaxAmount = decimal.RequireFromString("9999999999999999.99")

// Product: позиция каталога. Code уникален.
type Product struct {
	ID          int64
	Code        string
	Description string
	// UnitPrice хранится как decimal с фиксированной точностью PriceScale.
	UnitPrice decimal.Decimal
}

// HasValidScale сообщает, укладывается ли значение в PriceScale знаков после запятой.
func HasValidScale(d decimal.Decimal) bool {
	return d.Round(PriceScale).Equal(d)
}
