// Package orders координирует создание, замену и удаление заказов
// в границах одной транзакции хранилища.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
	"github.com/vladislavdragonenkov/ordersvc/internal/metrics"
	"github.com/vladislavdragonenkov/ordersvc/internal/pricing"
)

const (
	opCreate = "order_create"
	opUpdate = "order_update"
	opDelete = "order_delete"
	opGet    = "order_get"
	opList   = "order_list"
)

// CreateResult: результат создания заказа.
type CreateResult struct {
	OrderID   int64
	Total     decimal.Decimal
	OrderDate time.Time
}

// UpdateResult: результат замены заказа.
type UpdateResult struct {
	OrderID   int64
	Total     decimal.Decimal
	UpdatedAt time.Time
}

// Details: заказ с краткими данными клиента. Customer равен nil,
// если клиент с кодом заказа больше не существует.
type Details struct {
	Order    domain.Order
	Customer *domain.CustomerSummary
}

// Service: координатор транзакций заказов.
type Service struct {
	store   domain.Store
	engine  *pricing.Engine
	metrics *metrics.OrderMetrics
	logger  *log.Entry
	now     func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics задаёт метрики операций.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник текущего времени (используется в тестах).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService конструирует координатор с зависимостями.
func NewService(store domain.Store, engine *pricing.Engine, options ...Option) *Service {
	s := &Service{
		store:  store,
		engine: engine,
		now:    time.Now,
	}
	for _, option := range options {
		option(s)
	}
	if s.engine == nil {
		s.engine = pricing.NewEngine()
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "order-service")
	}
	return s
}

// Create рассчитывает и сохраняет новый заказ вместе с позициями.
// При любой ошибке хранилище остаётся в исходном состоянии.
func (s *Service) Create(ctx context.Context, cmd domain.CreateOrderCommand) (CreateResult, error) {
	start := time.Now()

	var order domain.Order
	err := domain.RunInTx(ctx, s.store, func(tx domain.Tx) error {
		quote, err := s.engine.PriceOrder(ctx, tx, cmd.CustomerCode, cmd.Items)
		if err != nil {
			return err
		}

		order = domain.Order{
			OrderDate:    s.now().UTC(),
			CustomerCode: quote.Customer.Code,
			Total:        quote.Total,
			Lines:        quote.Lines,
		}
		if err := checkInvariants(order); err != nil {
			return err
		}

		if err := tx.Orders().Create(ctx, &order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := tx.Orders().InsertLines(ctx, order.ID, order.Lines); err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
		return enqueueEvent(ctx, tx, domain.OrderEventCreated, order)
	})
	s.record(opCreate, start, err)
	if err != nil {
		return CreateResult{}, s.fail(opCreate, err, log.Fields{"customer_code": cmd.CustomerCode})
	}

	s.metrics.RecordOrderPriced(order.Total.InexactFloat64(), len(order.Lines))
	s.logger.WithFields(log.Fields{
		"order_id":      order.ID,
		"customer_code": order.CustomerCode,
		"total":         order.Total.StringFixed(domain.PriceScale),
	}).Info("order created")

	return CreateResult{OrderID: order.ID, Total: order.Total, OrderDate: order.OrderDate}, nil
}

// Update заменяет клиента и все позиции заказа, пересчитывая цены по текущему каталогу.
// Порядок проверок тот же, что и при создании: сначала загрузка всех сущностей, затем проверка позиций.
func (s *Service) Update(ctx context.Context, cmd domain.UpdateOrderCommand) (UpdateResult, error) {
	start := time.Now()

	var order domain.Order
	err := domain.RunInTx(ctx, s.store, func(tx domain.Tx) error {
		current, err := tx.Orders().Get(ctx, cmd.OrderID, false)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFoundf("order with id %d does not exist", cmd.OrderID)
			}
			return fmt.Errorf("find order %d: %w", cmd.OrderID, err)
		}

		quote, err := s.engine.PriceOrder(ctx, tx, cmd.CustomerCode, cmd.Items)
		if err != nil {
			return err
		}

		order = current
		order.CustomerCode = quote.Customer.Code
		order.Total = quote.Total
		order.OrderDate = s.now().UTC()
		order.Lines = quote.Lines
		if err := checkInvariants(order); err != nil {
			return err
		}

		if err := tx.Orders().DeleteLines(ctx, order.ID); err != nil {
			return fmt.Errorf("delete order lines: %w", err)
		}
		if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if err := tx.Orders().InsertLines(ctx, order.ID, order.Lines); err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
		return enqueueEvent(ctx, tx, domain.OrderEventUpdated, order)
	})
	s.record(opUpdate, start, err)
	if err != nil {
		return UpdateResult{}, s.fail(opUpdate, err, log.Fields{
			"order_id":      cmd.OrderID,
			"customer_code": cmd.CustomerCode,
		})
	}

	s.metrics.RecordOrderPriced(order.Total.InexactFloat64(), len(order.Lines))
	s.logger.WithFields(log.Fields{
		"order_id":      order.ID,
		"customer_code": order.CustomerCode,
		"total":         order.Total.StringFixed(domain.PriceScale),
	}).Info("order updated")

	return UpdateResult{OrderID: order.ID, Total: order.Total, UpdatedAt: order.OrderDate}, nil
}

// Delete удаляет заказ вместе с позициями.
func (s *Service) Delete(ctx context.Context, orderID int64) error {
	start := time.Now()

	err := domain.RunInTx(ctx, s.store, func(tx domain.Tx) error {
		order, err := tx.Orders().Get(ctx, orderID, true)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFoundf("order with id %d does not exist", orderID)
			}
			return fmt.Errorf("find order %d: %w", orderID, err)
		}

		if err := tx.Orders().Delete(ctx, orderID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return enqueueEvent(ctx, tx, domain.OrderEventDeleted, order)
	})
	s.record(opDelete, start, err)
	if err != nil {
		return s.fail(opDelete, err, log.Fields{"order_id": orderID})
	}

	s.logger.WithField("order_id", orderID).Info("order deleted")
	return nil
}

// Get возвращает заказ с позициями и краткими данными клиента.
func (s *Service) Get(ctx context.Context, orderID int64) (Details, error) {
	start := time.Now()

	details, err := s.get(ctx, orderID)
	s.record(opGet, start, err)
	if err != nil {
		return Details{}, s.fail(opGet, err, log.Fields{"order_id": orderID})
	}
	return details, nil
}

func (s *Service) get(ctx context.Context, orderID int64) (Details, error) {
	order, err := s.store.Orders().Get(ctx, orderID, true)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Details{}, domain.NotFoundf("order with id %d does not exist", orderID)
		}
		return Details{}, fmt.Errorf("find order %d: %w", orderID, err)
	}

	details := Details{Order: order}
	customer, err := s.store.Customers().GetByCode(ctx, order.CustomerCode)
	switch {
	case err == nil:
		summary := customer.Summary()
		details.Customer = &summary
	case errors.Is(err, domain.ErrNotFound):
	default:
		return Details{}, fmt.Errorf("find customer %q: %w", order.CustomerCode, err)
	}
	return details, nil
}

// List возвращает все заказы; клиенты подгружаются одним пакетным запросом.
func (s *Service) List(ctx context.Context) ([]Details, error) {
	start := time.Now()

	result, err := s.list(ctx)
	s.record(opList, start, err)
	if err != nil {
		return nil, s.fail(opList, err, nil)
	}
	return result, nil
}

func (s *Service) list(ctx context.Context) ([]Details, error) {
	orders, err := s.store.Orders().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	codes := make([]string, 0, len(orders))
	seen := make(map[string]struct{}, len(orders))
	for _, order := range orders {
		if _, ok := seen[order.CustomerCode]; ok {
			continue
		}
		seen[order.CustomerCode] = struct{}{}
		codes = append(codes, order.CustomerCode)
	}

	customers, err := s.store.Customers().ListByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	byCode := make(map[string]domain.CustomerSummary, len(customers))
	for _, c := range customers {
		byCode[c.Code] = c.Summary()
	}

	result := make([]Details, 0, len(orders))
	for _, order := range orders {
		d := Details{Order: order}
		if summary, ok := byCode[order.CustomerCode]; ok {
			d.Customer = &summary
		}
		result = append(result, d)
	}
	return result, nil
}

// checkInvariants повторно сверяет рассчитанный заказ; расхождение считается внутренней ошибкой.
func checkInvariants(order domain.Order) error {
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return fmt.Errorf("order invariants violated: %w", errors.Join(errs...))
	}
	return nil
}

func enqueueEvent(ctx context.Context, tx domain.Tx, eventType domain.OrderEventType, order domain.Order) error {
	msg, err := domain.NewOrderEvent(eventType, order)
	if err != nil {
		return err
	}
	if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s event: %w", eventType, err)
	}
	return nil
}

func (s *Service) record(operation string, start time.Time, err error) {
	result := metrics.ResultOK
	if err != nil {
		result = string(domain.KindOf(err))
	}
	s.metrics.RecordOperation(operation, result, time.Since(start))
}

// fail логирует ошибку по её виду и возвращает её вызывающему слою без изменений.
func (s *Service) fail(operation string, err error, fields log.Fields) error {
	entry := s.logger.WithFields(fields).WithField("operation", operation)
	if kind := domain.KindOf(err); kind != domain.KindUnexpected {
		entry.WithField("kind", kind).Debug(err.Error())
		return err
	}
	entry.WithError(err).Error("order operation failed")
	return err
}
