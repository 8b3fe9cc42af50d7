package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type orderItem struct {
	ProductCode string `json:"product_code"`
	Quantity    int    `json:"quantity"`
}

type orderRequest struct {
	CustomerCode string      `json:"customer_code"`
	Items        []orderItem `json:"items"`
}

type createOrderResponse struct {
	OrderID int64           `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
}

// apiClient вызывает HTTP API сервиса и записывает каждый вызов в collector.
type apiClient struct {
	baseURL string
	http    *http.Client
	col     *collector
}

func newAPIClient(baseURL string, timeout time.Duration, col *collector) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		col:     col,
	}
}

// call выполняет запрос и считает его успешным, если статус входит в accepted.
func (c *apiClient) call(ctx context.Context, name, method, path string, body, out any, accepted ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%s: encode body: %w", name, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w", name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.col.record(name, time.Since(start), 0, false)
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	ok := slices.Contains(accepted, resp.StatusCode)
	c.col.record(name, time.Since(start), resp.StatusCode, ok)
	if !ok {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("%s: unexpected status %d: %s", name, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%s: decode response: %w", name, err)
		}
	}
	return resp.StatusCode, nil
}

// ensureFixtures создаёт клиента и товар для нагрузки; уже существующие не считаются ошибкой.
func (c *apiClient) ensureFixtures(ctx context.Context, cfg config) error {
	customer := map[string]string{
		"code":        cfg.customerCode,
		"name":        "Load Test Customer",
		"national_id": "99999999",
	}
	if _, err := c.call(ctx, "setup_customer", http.MethodPost, "/api/customers", customer, nil,
		http.StatusCreated, http.StatusConflict); err != nil {
		return err
	}

	product := map[string]any{
		"code":        cfg.productCode,
		"description": "Load test product",
		"unit_price":  cfg.unitPrice,
	}
	if _, err := c.call(ctx, "setup_product", http.MethodPost, "/api/products", product, nil,
		http.StatusCreated, http.StatusConflict); err != nil {
		return err
	}
	return nil
}

func (c *apiClient) createOrder(ctx context.Context, cfg config) (int64, error) {
	req := orderRequest{
		CustomerCode: cfg.customerCode,
		Items:        []orderItem{{ProductCode: cfg.productCode, Quantity: cfg.quantity}},
	}
	var resp createOrderResponse
	if _, err := c.call(ctx, "create_order", http.MethodPost, "/api/orders", req, &resp, http.StatusCreated); err != nil {
		return 0, err
	}
	if resp.OrderID <= 0 {
		return 0, fmt.Errorf("create_order: response returned empty order id")
	}
	if want := expectedTotal(cfg.unitPrice, cfg.quantity); !resp.Total.Equal(want) {
		return resp.OrderID, fmt.Errorf("create_order: total %s, expected %s", resp.Total, want)
	}
	return resp.OrderID, nil
}

func (c *apiClient) getOrder(ctx context.Context, id int64) error {
	_, err := c.call(ctx, "get_order", http.MethodGet, "/api/orders/"+strconv.FormatInt(id, 10), nil, nil, http.StatusOK)
	return err
}

func (c *apiClient) updateOrder(ctx context.Context, cfg config, id int64) error {
	req := orderRequest{
		CustomerCode: cfg.customerCode,
		Items:        []orderItem{{ProductCode: cfg.productCode, Quantity: cfg.quantity + 1}},
	}
	_, err := c.call(ctx, "update_order", http.MethodPut, "/api/orders/"+strconv.FormatInt(id, 10), req, nil, http.StatusOK)
	return err
}

func (c *apiClient) deleteOrder(ctx context.Context, id int64) error {
	_, err := c.call(ctx, "delete_order", http.MethodDelete, "/api/orders/"+strconv.FormatInt(id, 10), nil, nil, http.StatusNoContent)
	return err
}

// expectedTotal: сумма заказа из одной позиции, как её посчитает сервис.
func expectedTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
