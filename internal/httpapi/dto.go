package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
	"github.com/vladislavdragonenkov/ordersvc/internal/service/orders"
)

// Money выводит денежную сумму JSON-числом с двумя знаками после запятой.
type Money decimal.Decimal

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(domain.PriceScale)), nil
}

type orderItemRequest struct {
	ProductCode string `json:"product_code"`
	Quantity    int    `json:"quantity"`
}

type createOrderRequest struct {
	CustomerCode string             `json:"customer_code"`
	Items        []orderItemRequest `json:"items"`
}

type updateOrderRequest struct {
	// OrderID необязателен; если указан, должен совпадать с id из пути.
	OrderID      *int64             `json:"order_id,omitempty"`
	CustomerCode string             `json:"customer_code"`
	Items        []orderItemRequest `json:"items"`
}

func toItems(items []orderItemRequest) []domain.OrderItem {
	result := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		result = append(result, domain.OrderItem{ProductCode: item.ProductCode, Quantity: item.Quantity})
	}
	return result
}

type customerRequest struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
}

type productRequest struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Errors []string `json:"errors"`
}

type createOrderResponse struct {
	OrderID   int64     `json:"order_id"`
	Total     Money     `json:"total"`
	OrderDate time.Time `json:"order_date"`
}

type updateOrderResponse struct {
	OrderID   int64     `json:"order_id"`
	Total     Money     `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

type customerSummaryResponse struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
}

type orderLineResponse struct {
	LineID             int64  `json:"line_id"`
	ProductCode        string `json:"product_code"`
	ProductDescription string `json:"product_description"`
	Quantity           int    `json:"quantity"`
	UnitPrice          Money  `json:"unit_price"`
	Subtotal           Money  `json:"subtotal"`
}

type orderResponse struct {
	OrderID      int64                    `json:"order_id"`
	OrderDate    time.Time                `json:"order_date"`
	CustomerCode string                   `json:"customer_code"`
	Customer     *customerSummaryResponse `json:"customer"`
	Lines        []orderLineResponse      `json:"lines"`
	Total        Money                    `json:"total"`
}

func toOrderResponse(d orders.Details) orderResponse {
	resp := orderResponse{
		OrderID:      d.Order.ID,
		OrderDate:    d.Order.OrderDate,
		CustomerCode: d.Order.CustomerCode,
		Lines:        make([]orderLineResponse, 0, len(d.Order.Lines)),
		Total:        Money(d.Order.Total),
	}
	if d.Customer != nil {
		resp.Customer = &customerSummaryResponse{
			Code:       d.Customer.Code,
			Name:       d.Customer.Name,
			NationalID: d.Customer.NationalID,
		}
	}
	for _, line := range d.Order.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			LineID:             line.ID,
			ProductCode:        line.ProductCode,
			ProductDescription: line.ProductDescription,
			Quantity:           line.Quantity,
			UnitPrice:          Money(line.UnitPrice),
			Subtotal:           Money(line.Subtotal),
		})
	}
	return resp
}

type customerResponse struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
}

func toCustomerResponse(c domain.Customer) customerResponse {
	return customerResponse{ID: c.ID, Code: c.Code, Name: c.Name, NationalID: c.NationalID}
}

type createCustomerResponse struct {
	Message    string `json:"message"`
	CustomerID int64  `json:"customer_id"`
}

type productResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	UnitPrice   Money  `json:"unit_price"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{ID: p.ID, Code: p.Code, Description: p.Description, UnitPrice: Money(p.UnitPrice)}
}

type createProductResponse struct {
	Message   string `json:"message"`
	ProductID int64  `json:"product_id"`
}
