// Package customers реализует жизненный цикл клиентов с проверкой уникальности
// и защитой от удаления клиентов, на которых ссылаются заказы.
package customers

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
	"github.com/vladislavdragonenkov/ordersvc/internal/metrics"
)

// Service управляет клиентами.
type Service struct {
	store   domain.Store
	metrics *metrics.OrderMetrics
	logger  *log.Entry
}

// NewService создаёт сервис клиентов. metrics может быть nil.
func NewService(store domain.Store, m *metrics.OrderMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "customer-service")
	}
	return &Service{store: store, metrics: m, logger: logger}
}

// Create регистрирует клиента и возвращает его идентификатор.
func (s *Service) Create(ctx context.Context, cmd domain.CreateCustomerCommand) (int64, error) {
	start := time.Now()

	customer := domain.Customer{Code: cmd.Code, Name: cmd.Name, NationalID: cmd.NationalID}
	err := domain.RunInTx(ctx, s.store, func(tx domain.Tx) error {
		if err := ensureUnique(ctx, tx.Customers(), customer); err != nil {
			return err
		}
		if err := tx.Customers().Create(ctx, &customer); err != nil {
			return translateWrite(err, customer)
		}
		return nil
	})
	s.record("customer_create", start, err)
	if err != nil {
		return 0, s.fail("customer_create", err, log.Fields{"code": cmd.Code})
	}

	s.logger.WithFields(log.Fields{"customer_id": customer.ID, "code": customer.Code}).Info("customer created")
	return customer.ID, nil
}

// Update перезаписывает данные клиента по идентификатору.
func (s *Service) Update(ctx context.Context, cmd domain.UpdateCustomerCommand) error {
	start := time.Now()

	customer := domain.Customer{ID: cmd.ID, Code: cmd.Code, Name: cmd.Name, NationalID: cmd.NationalID}
	err := domain.RunInTx(ctx, s.store, func(tx domain.Tx) error {
		current, err := tx.Customers().GetByID(ctx, cmd.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFoundf("customer with id %d does not exist", cmd.ID)
			}
			return fmt.Errorf("find customer %d: %w", cmd.ID, err)
		}
		// Заказы ссылаются на клиента по коду, поэтому код клиента с заказами менять нельзя.
		if current.Code != customer.Code {
			referenced, err := tx.Orders().ExistsForCustomer(ctx, current.Code)
			if err != nil {
				return fmt.Errorf("check orders of customer %q: %w", current.Code, err)
			}
			if referenced {
				return domain.Conflictf("customer %s has orders and its code cannot be changed", current.Code)
			}
		}
		if err := ensureUnique(ctx, tx.Customers(), customer); err != nil {
			return err
		}
		if err := tx.Customers().Update(ctx, customer); err != nil {
			return translateWrite(err, customer)
		}
		return nil
	})
	s.record("customer_update", start, err)
	if err != nil {
		return s.fail("customer_update", err, log.Fields{"customer_id": cmd.ID})
	}

	s.logger.WithField("customer_id", cmd.ID).Info("customer updated")
	return nil
}

// Delete удаляет клиента, если на его код не ссылается ни один заказ.
func (s *Service) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	err := domain.RunInTx(ctx, s.store, func(tx domain.Tx) error {
		customer, err := tx.Customers().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFoundf("customer with id %d does not exist", id)
			}
			return fmt.Errorf("find customer %d: %w", id, err)
		}

		referenced, err := tx.Orders().ExistsForCustomer(ctx, customer.Code)
		if err != nil {
			return fmt.Errorf("check orders of customer %q: %w", customer.Code, err)
		}
		if referenced {
			return domain.Conflictf("customer %s has orders and cannot be deleted", customer.Code)
		}

		if err := tx.Customers().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete customer %d: %w", id, err)
		}
		return nil
	})
	s.record("customer_delete", start, err)
	if err != nil {
		return s.fail("customer_delete", err, log.Fields{"customer_id": id})
	}

	s.logger.WithField("customer_id", id).Info("customer deleted")
	return nil
}

// Get возвращает клиента по коду.
func (s *Service) Get(ctx context.Context, code string) (domain.Customer, error) {
	customer, err := s.store.Customers().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Customer{}, domain.NotFoundf("customer with code '%s' does not exist", code)
		}
		return domain.Customer{}, s.fail("customer_get", fmt.Errorf("find customer %q: %w", code, err), log.Fields{"code": code})
	}
	return customer, nil
}

// List возвращает всех клиентов по возрастанию идентификатора.
func (s *Service) List(ctx context.Context) ([]domain.Customer, error) {
	customers, err := s.store.Customers().List(ctx)
	if err != nil {
		return nil, s.fail("customer_list", fmt.Errorf("list customers: %w", err), nil)
	}
	return customers, nil
}

func ensureUnique(ctx context.Context, repo domain.CustomerRepository, customer domain.Customer) error {
	taken, err := repo.CodeTaken(ctx, customer.Code, customer.ID)
	if err != nil {
		return fmt.Errorf("check customer code: %w", err)
	}
	if taken {
		return domain.Conflictf("customer with code %s already exists", customer.Code)
	}

	taken, err = repo.NationalIDTaken(ctx, customer.NationalID, customer.ID)
	if err != nil {
		return fmt.Errorf("check customer national id: %w", err)
	}
	if taken {
		return domain.Conflictf("customer with national id %s already exists", customer.NationalID)
	}
	return nil
}

// translateWrite превращает нарушение unique-ограничения, пойманное хранилищем
// при гонке с параллельной записью, в конфликт.
func translateWrite(err error, customer domain.Customer) error {
	if domain.IsDuplicateKey(err) {
		return domain.Conflictf("customer with code %s or national id %s already exists", customer.Code, customer.NationalID)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFoundf("customer with id %d does not exist", customer.ID)
	}
	return fmt.Errorf("save customer: %w", err)
}

func (s *Service) record(operation string, start time.Time, err error) {
	result := metrics.ResultOK
	if err != nil {
		result = string(domain.KindOf(err))
	}
	s.metrics.RecordOperation(operation, result, time.Since(start))
}

func (s *Service) fail(operation string, err error, fields log.Fields) error {
	if domain.KindOf(err) == domain.KindUnexpected {
		s.logger.WithFields(fields).WithField("operation", operation).WithError(err).Error("customer operation failed")
	}
	return err
}
