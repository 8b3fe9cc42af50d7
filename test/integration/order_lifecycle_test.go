package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
	"github.com/vladislavdragonenkov/ordersvc/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordersvc/internal/metrics"
	"github.com/vladislavdragonenkov/ordersvc/internal/pricing"
	"github.com/vladislavdragonenkov/ordersvc/internal/service/customers"
	"github.com/vladislavdragonenkov/ordersvc/internal/service/orders"
	"github.com/vladislavdragonenkov/ordersvc/internal/service/outbox"
	"github.com/vladislavdragonenkov/ordersvc/internal/service/products"
	"github.com/vladislavdragonenkov/ordersvc/internal/storage/memory"
)

// OrderLifecycleTestSuite проверяет путь заказа от API сервисов до Kafka через outbox.
type OrderLifecycleTestSuite struct {
	suite.Suite
	store     *memory.Store
	orders    *orders.Service
	customers *customers.Service
	products  *products.Service
	kafka     *mocks.SyncProducer
	worker    *outbox.Worker
}

func (suite *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	reg := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetricsWithRegisterer(reg)

	suite.store = memory.NewStore()
	suite.orders = orders.NewService(suite.store, pricing.NewEngine(),
		orders.WithLogger(logger),
		orders.WithMetrics(orderMetrics),
	)
	suite.customers = customers.NewService(suite.store, orderMetrics, logger)
	suite.products = products.NewService(suite.store, orderMetrics, logger)

	suite.kafka = mocks.NewSyncProducer(suite.T(), nil)
	producer := kafka.NewProducerFromSarama(suite.kafka, logger)
	suite.worker = outbox.NewWorker(
		suite.store.Outbox(),
		kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
		outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
		outbox.WithLogger(logger),
		outbox.WithMetrics(metrics.NewOutboxMetrics(reg)),
		outbox.WithMaxAttempts(2),
		outbox.WithRetryBaseDelay(0),
	)

	ctx := context.Background()
	_, err := suite.customers.Create(ctx, domain.CreateCustomerCommand{Code: "C001", Name: "Ana", NationalID: "12345678"})
	suite.Require().NoError(err)
	_, err = suite.products.Create(ctx, domain.CreateProductCommand{
		Code: "P001", Description: "Widget", UnitPrice: decimal.RequireFromString("10.00"),
	})
	suite.Require().NoError(err)
	_, err = suite.products.Create(ctx, domain.CreateProductCommand{
		Code: "P002", Description: "Gadget", UnitPrice: decimal.RequireFromString("2.50"),
	})
	suite.Require().NoError(err)
}

func (suite *OrderLifecycleTestSuite) TearDownTest() {
	// Close у мока проверяет, что все ожидания выполнены.
	suite.Require().NoError(suite.kafka.Close())
}

func expectEvent(eventType domain.OrderEventType) mocks.ValueChecker {
	return func(val []byte) error {
		var envelope kafka.Envelope
		if err := json.Unmarshal(val, &envelope); err != nil {
			return err
		}
		if envelope.EventType != string(eventType) {
			return fmt.Errorf("event type = %q, want %q", envelope.EventType, eventType)
		}
		return nil
	}
}

func (suite *OrderLifecycleTestSuite) pendingOutbox() int {
	stats, err := suite.store.Outbox().Stats(context.Background())
	suite.Require().NoError(err)
	return stats.PendingCount
}

func (suite *OrderLifecycleTestSuite) TestSuccessfulOrderLifecycle() {
	ctx := context.Background()

	// 1. Создаём заказ
	created, err := suite.orders.Create(ctx, domain.CreateOrderCommand{
		CustomerCode: "C001",
		Items:        []domain.OrderItem{{ProductCode: "P001", Quantity: 3}},
	})
	suite.Require().NoError(err)
	suite.Equal("30.00", created.Total.StringFixed(2))

	// 2. Меняем цену в каталоге: снимок в заказе не меняется
	suite.Require().NoError(suite.products.Update(ctx, domain.UpdateProductCommand{
		CurrentCode: "P001", Code: "P001", Description: "Widget v2", UnitPrice: decimal.RequireFromString("12.00"),
	}))
	details, err := suite.orders.Get(ctx, created.OrderID)
	suite.Require().NoError(err)
	suite.Require().Len(details.Order.Lines, 1)
	suite.Equal("Widget", details.Order.Lines[0].ProductDescription)
	suite.Equal("10.00", details.Order.Lines[0].UnitPrice.StringFixed(2))

	// 3. Обновляем заказ: цены берутся заново
	updated, err := suite.orders.Update(ctx, domain.UpdateOrderCommand{
		OrderID:      created.OrderID,
		CustomerCode: "C001",
		Items: []domain.OrderItem{
			{ProductCode: "P001", Quantity: 1},
			{ProductCode: "P002", Quantity: 2},
		},
	})
	suite.Require().NoError(err)
	suite.Equal("17.00", updated.Total.StringFixed(2))

	// 4. Удаляем заказ
	suite.Require().NoError(suite.orders.Delete(ctx, created.OrderID))
	_, err = suite.orders.Get(ctx, created.OrderID)
	suite.True(errors.Is(err, domain.ErrNotFound))

	// 5. Outbox публикует события в порядке фиксации
	suite.Equal(3, suite.pendingOutbox())
	suite.kafka.ExpectSendMessageWithCheckerFunctionAndSucceed(expectEvent(domain.OrderEventCreated))
	suite.kafka.ExpectSendMessageWithCheckerFunctionAndSucceed(expectEvent(domain.OrderEventUpdated))
	suite.kafka.ExpectSendMessageWithCheckerFunctionAndSucceed(expectEvent(domain.OrderEventDeleted))

	suite.worker.ProcessOnce(ctx)
	suite.Equal(0, suite.pendingOutbox())
}

func (suite *OrderLifecycleTestSuite) TestFailedCreateLeavesNoTrace() {
	ctx := context.Background()

	_, err := suite.orders.Create(ctx, domain.CreateOrderCommand{
		CustomerCode: "C001",
		Items: []domain.OrderItem{
			{ProductCode: "P001", Quantity: 1},
			{ProductCode: "P404", Quantity: 1},
		},
	})
	suite.Require().Error(err)
	suite.Equal(domain.KindNotFound, domain.KindOf(err))

	list, err := suite.orders.List(ctx)
	suite.Require().NoError(err)
	suite.Empty(list)
	suite.Equal(0, suite.pendingOutbox())

	// Воркер ничего не отправляет: ожиданий у мока нет.
	suite.worker.ProcessOnce(ctx)
}

func (suite *OrderLifecycleTestSuite) TestReferencedEntitiesCannotBeDeleted() {
	ctx := context.Background()

	created, err := suite.orders.Create(ctx, domain.CreateOrderCommand{
		CustomerCode: "C001",
		Items:        []domain.OrderItem{{ProductCode: "P002", Quantity: 4}},
	})
	suite.Require().NoError(err)

	customer, err := suite.customers.Get(ctx, "C001")
	suite.Require().NoError(err)
	err = suite.customers.Delete(ctx, customer.ID)
	suite.Equal(domain.KindConflict, domain.KindOf(err))

	err = suite.products.Delete(ctx, "P002")
	suite.Equal(domain.KindConflict, domain.KindOf(err))

	suite.Require().NoError(suite.orders.Delete(ctx, created.OrderID))
	suite.Require().NoError(suite.customers.Delete(ctx, customer.ID))
	suite.Require().NoError(suite.products.Delete(ctx, "P002"))

	suite.kafka.ExpectSendMessageAndSucceed()
	suite.kafka.ExpectSendMessageAndSucceed()
	suite.worker.ProcessOnce(ctx)
}

func (suite *OrderLifecycleTestSuite) TestPublishFailureGoesToDeadLetterQueue() {
	ctx := context.Background()

	created, err := suite.orders.Create(ctx, domain.CreateOrderCommand{
		CustomerCode: "C001",
		Items:        []domain.OrderItem{{ProductCode: "P001", Quantity: 1}},
	})
	suite.Require().NoError(err)

	brokerDown := errors.New("broker unavailable")
	suite.kafka.ExpectSendMessageAndFail(brokerDown)
	suite.kafka.ExpectSendMessageAndFail(brokerDown)
	suite.kafka.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		original, reason, err := kafka.DecodeDeadLetter(val)
		if err != nil {
			return err
		}
		if original.EventType != string(domain.OrderEventCreated) {
			return fmt.Errorf("unexpected event type %q", original.EventType)
		}
		if original.AggregateID != fmt.Sprint(created.OrderID) {
			return fmt.Errorf("unexpected aggregate id %q", original.AggregateID)
		}
		if reason == "" {
			return errors.New("publish error is empty")
		}
		return nil
	})

	suite.worker.ProcessOnce(ctx)
	suite.Equal(0, suite.pendingOutbox())
}

func TestOrderLifecycleSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}

func TestConcurrentCreatesKeepTotalsConsistent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	logger := log.NewEntry(log.New())
	logger.Logger.SetLevel(log.WarnLevel)

	customerSvc := customers.NewService(store, nil, logger)
	productSvc := products.NewService(store, nil, logger)
	orderSvc := orders.NewService(store, pricing.NewEngine(), orders.WithLogger(logger))

	_, err := customerSvc.Create(ctx, domain.CreateCustomerCommand{Code: "C001", Name: "Ana", NationalID: "12345678"})
	require.NoError(t, err)
	_, err = productSvc.Create(ctx, domain.CreateProductCommand{Code: "P001", Description: "Widget", UnitPrice: decimal.RequireFromString("0.10")})
	require.NoError(t, err)

	const workers = 20
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := orderSvc.Create(ctx, domain.CreateOrderCommand{
				CustomerCode: "C001",
				Items:        []domain.OrderItem{{ProductCode: "P001", Quantity: 3}},
			})
			errs <- err
		}()
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-errs)
	}

	list, err := orderSvc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, workers)
	for _, details := range list {
		require.Equal(t, "0.30", details.Order.Total.StringFixed(2))
	}
}
