// Package httpapi реализует JSON API над сервисами заказов, клиентов и товаров.
// Каждый запрос сначала проходит проверку структуры, и только потом
// попадает в сервис.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
	"github.com/vladislavdragonenkov/ordersvc/internal/metrics"
	"github.com/vladislavdragonenkov/ordersvc/internal/service/orders"
)

// OrderService: операции над заказами, нужные API.
type OrderService interface {
	Create(ctx context.Context, cmd domain.CreateOrderCommand) (orders.CreateResult, error)
	Update(ctx context.Context, cmd domain.UpdateOrderCommand) (orders.UpdateResult, error)
	Delete(ctx context.Context, orderID int64) error
	Get(ctx context.Context, orderID int64) (orders.Details, error)
	List(ctx context.Context) ([]orders.Details, error)
}

// CustomerService: операции над клиентами.
type CustomerService interface {
	Create(ctx context.Context, cmd domain.CreateCustomerCommand) (int64, error)
	Update(ctx context.Context, cmd domain.UpdateCustomerCommand) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, code string) (domain.Customer, error)
	List(ctx context.Context) ([]domain.Customer, error)
}

// ProductService: операции над каталогом.
type ProductService interface {
	Create(ctx context.Context, cmd domain.CreateProductCommand) (int64, error)
	Update(ctx context.Context, cmd domain.UpdateProductCommand) error
	Delete(ctx context.Context, code string) error
	Get(ctx context.Context, code string) (domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}

// Handler обслуживает /api/*.
type Handler struct {
	orders    OrderService
	customers CustomerService
	products  ProductService
	metrics   *metrics.HTTPMetrics
	logger    *log.Entry
}

// NewHandler создаёт API. httpMetrics может быть nil.
func NewHandler(
	orderSvc OrderService,
	customerSvc CustomerService,
	productSvc ProductService,
	httpMetrics *metrics.HTTPMetrics,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{
		orders:    orderSvc,
		customers: customerSvc,
		products:  productSvc,
		metrics:   httpMetrics,
		logger:    logger,
	}
}

// Routes возвращает маршрутизатор API с логированием запросов и recover.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, h.recoverer, h.accessLog)

	h.handle(r, http.MethodGet, "/api/orders", "orders_list", h.listOrders)
	h.handle(r, http.MethodGet, "/api/orders/{id}", "orders_get", h.getOrder)
	h.handle(r, http.MethodPost, "/api/orders", "orders_create", h.createOrder)
	h.handle(r, http.MethodPut, "/api/orders/{id}", "orders_update", h.updateOrder)
	h.handle(r, http.MethodDelete, "/api/orders/{id}", "orders_delete", h.deleteOrder)

	h.handle(r, http.MethodGet, "/api/customers", "customers_list", h.listCustomers)
	h.handle(r, http.MethodGet, "/api/customers/{code}", "customers_get", h.getCustomer)
	h.handle(r, http.MethodPost, "/api/customers", "customers_create", h.createCustomer)
	h.handle(r, http.MethodPut, "/api/customers/{id}", "customers_update", h.updateCustomer)
	h.handle(r, http.MethodDelete, "/api/customers/{id}", "customers_delete", h.deleteCustomer)

	h.handle(r, http.MethodGet, "/api/products", "products_list", h.listProducts)
	h.handle(r, http.MethodGet, "/api/products/{code}", "products_get", h.getProduct)
	h.handle(r, http.MethodPost, "/api/products", "products_create", h.createProduct)
	h.handle(r, http.MethodPut, "/api/products/{code}", "products_update", h.updateProduct)
	h.handle(r, http.MethodDelete, "/api/products/{code}", "products_delete", h.deleteProduct)

	return r
}

func (h *Handler) handle(r chi.Router, method, pattern, name string, fn http.HandlerFunc) {
	var handler http.Handler = fn
	if h.metrics != nil {
		handler = h.metrics.Instrument(name, handler)
	}
	r.Method(method, pattern, handler)
}
