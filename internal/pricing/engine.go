// Package pricing превращает проверенный запрос заказа в позиции со снимком цен
// и итоговую сумму, проверяя инварианты, требующие обращения к хранилищу.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

// Quote: результат расчёта заказа.
type Quote struct {
	Customer domain.Customer
	// Lines в порядке позиций запроса, ID не заполнены.
	Lines []domain.OrderLine
	Total decimal.Decimal
}

// Engine рассчитывает заказы. Не хранит состояние между вызовами.
type Engine struct{}

// NewEngine создаёт движок расчёта.
func NewEngine() *Engine {
	return &Engine{}
}

// PriceOrder разрешает клиента и товары через repos и рассчитывает позиции.
// Сначала загружаются все сущности, затем проверяются все позиции; ничего не записывает.
func (e *Engine) PriceOrder(
	ctx context.Context,
	repos domain.Repositories,
	customerCode string,
	items []domain.OrderItem,
) (Quote, error) {
	customer, err := repos.Customers().GetByCode(ctx, customerCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Quote{}, domain.NotFoundf("customer with code '%s' does not exist", customerCode)
		}
		return Quote{}, fmt.Errorf("find customer %q: %w", customerCode, err)
	}

	if len(items) == 0 {
		return Quote{}, domain.BusinessRulef("order must contain at least one product")
	}

	codes := DistinctProductCodes(items)
	products, err := repos.Products().ListByCodes(ctx, codes)
	if err != nil {
		return Quote{}, fmt.Errorf("find products: %w", err)
	}

	catalog := make(map[string]domain.Product, len(products))
	for _, p := range products {
		catalog[p.Code] = p
	}

	var missing []string
	for _, code := range codes {
		if _, ok := catalog[code]; !ok {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		return Quote{}, domain.NotFoundf("products not found: %s", strings.Join(missing, ","))
	}

	lines, total, err := PriceLines(catalog, items)
	if err != nil {
		return Quote{}, err
	}

	return Quote{Customer: customer, Lines: lines, Total: total}, nil
}

// PriceLines рассчитывает позиции по уже загруженному каталогу.
// Повторяющиеся коды товара считаются независимо, количества не объединяются.
func PriceLines(catalog map[string]domain.Product, items []domain.OrderItem) ([]domain.OrderLine, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, domain.BusinessRulef("order must contain at least one product")
	}

	lines := make([]domain.OrderLine, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, decimal.Zero, domain.BusinessRulef("quantity for product %s must be > 0", item.ProductCode)
		}
		if item.Quantity > domain.MaxQuantity {
			return nil, decimal.Zero, domain.BusinessRulef("quantity for product %s must be at most %d", item.ProductCode, domain.MaxQuantity)
		}

		product, ok := catalog[item.ProductCode]
		if !ok {
			return nil, decimal.Zero, domain.NotFoundf("product with code '%s' does not exist", item.ProductCode)
		}
		if !product.UnitPrice.IsPositive() {
			return nil, decimal.Zero, domain.BusinessRulef("invalid unit price for product %s", product.Code)
		}

		subtotal := product.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(subtotal)
		if total.GreaterThan(domain.MaxAmount) {
			return nil, decimal.Zero, domain.BusinessRulef("order total exceeds the maximum of %s", domain.MaxAmount.StringFixed(domain.PriceScale))
		}
		lines = append(lines, domain.OrderLine{
			ProductCode:        product.Code,
			ProductDescription: product.Description,
			Quantity:           item.Quantity,
			UnitPrice:          product.UnitPrice,
			Subtotal:           subtotal,
		})
	}

	return lines, total, nil
}

// DistinctProductCodes возвращает коды товаров без повторов в порядке первого появления.
func DistinctProductCodes(items []domain.OrderItem) []string {
	seen := make(map[string]struct{}, len(items))
	codes := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductCode]; ok {
			continue
		}
		seen[item.ProductCode] = struct{}{}
		codes = append(codes, item.ProductCode)
	}
	return codes
}
