package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// AggregateTypeOrder: тип агрегата для событий заказа в outbox.
const AggregateTypeOrder = "order"

// OrderEventType определяет тип события заказа.
type OrderEventType string

const (
	OrderEventCreated OrderEventType = "order.created"
	OrderEventUpdated OrderEventType = "order.updated"
	OrderEventDeleted OrderEventType = "order.deleted"
)

// OrderEventLine: позиция заказа внутри payload события.
type OrderEventLine struct {
	ProductCode string          `json:"product_code"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderEventPayload: содержимое события заказа.
type OrderEventPayload struct {
	OrderID      int64            `json:"order_id"`
	CustomerCode string           `json:"customer_code,omitempty"`
	Total        decimal.Decimal  `json:"total"`
	OrderDate    time.Time        `json:"order_date"`
	Lines        []OrderEventLine `json:"lines,omitempty"`
}

// NewOrderEvent собирает outbox-сообщение по состоянию заказа.
func NewOrderEvent(eventType OrderEventType, order Order) (OutboxMessage, error) {
	payload := OrderEventPayload{
		OrderID:      order.ID,
		CustomerCode: order.CustomerCode,
		Total:        order.Total,
		OrderDate:    order.OrderDate,
	}
	for _, line := range order.Lines {
		payload.Lines = append(payload.Lines, OrderEventLine{
			ProductCode: line.ProductCode,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    line.Subtotal,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order event: %w", err)
	}

	return OutboxMessage{
		AggregateType: AggregateTypeOrder,
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     string(eventType),
		Payload:       data,
	}, nil
}
