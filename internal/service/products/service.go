// Package products реализует управление каталогом товаров.
package products

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
	"github.com/vladislavdragonenkov/ordersvc/internal/metrics"
)

// Service управляет каталогом. Изменение цены не затрагивает уже оформленные заказы.
type Service struct {
	store   domain.Store
	metrics *metrics.OrderMetrics
	logger  *log.Entry
}

// NewService создаёт сервис каталога. metrics может быть nil.
func NewService(store domain.Store, m *metrics.OrderMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "product-service")
	}
	return &Service{store: store, metrics: m, logger: logger}
}

// Create добавляет товар в каталог.
func (s *Service) Create(ctx context.Context, cmd domain.CreateProductCommand) (int64, error) {
	start := time.Now()

	product := domain.Product{Code: cmd.Code, Description: cmd.Description, UnitPrice: cmd.UnitPrice}
	err := domain.RunInTx(ctx, s.store, func(tx domain.Tx) error {
		taken, err := tx.Products().CodeTaken(ctx, product.Code, 0)
		if err != nil {
			return fmt.Errorf("check product code: %w", err)
		}
		if taken {
			return duplicateCode(product.Code)
		}
		if err := tx.Products().Create(ctx, &product); err != nil {
			if domain.IsDuplicateKey(err) {
				return duplicateCode(product.Code)
			}
			return fmt.Errorf("insert product: %w", err)
		}
		return nil
	})
	s.record("product_create", start, err)
	if err != nil {
		return 0, s.fail("product_create", err, log.Fields{"code": cmd.Code})
	}

	s.logger.WithFields(log.Fields{"product_id": product.ID, "code": product.Code}).Info("product created")
	return product.ID, nil
}

// Update изменяет товар, найденный по текущему коду; новый код должен быть свободен.
func (s *Service) Update(ctx context.Context, cmd domain.UpdateProductCommand) error {
	start := time.Now()

	err := domain.RunInTx(ctx, s.store, func(tx domain.Tx) error {
		product, err := tx.Products().GetByCode(ctx, cmd.CurrentCode)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return notFound(cmd.CurrentCode)
			}
			return fmt.Errorf("find product %q: %w", cmd.CurrentCode, err)
		}

		if cmd.Code != product.Code {
			// Позиции заказов хранят код товара; переименование оставило бы их без товара.
			referenced, err := tx.Orders().ExistsForProduct(ctx, product.Code)
			if err != nil {
				return fmt.Errorf("check order lines of product %q: %w", product.Code, err)
			}
			if referenced {
				return domain.Conflictf("product %s is referenced by orders and its code cannot be changed", product.Code)
			}

			taken, err := tx.Products().CodeTaken(ctx, cmd.Code, product.ID)
			if err != nil {
				return fmt.Errorf("check product code: %w", err)
			}
			if taken {
				return duplicateCode(cmd.Code)
			}
		}

		product.Code = cmd.Code
		product.Description = cmd.Description
		product.UnitPrice = cmd.UnitPrice
		if err := tx.Products().Update(ctx, product); err != nil {
			if domain.IsDuplicateKey(err) {
				return duplicateCode(cmd.Code)
			}
			return fmt.Errorf("update product: %w", err)
		}
		return nil
	})
	s.record("product_update", start, err)
	if err != nil {
		return s.fail("product_update", err, log.Fields{"code": cmd.CurrentCode})
	}

	s.logger.WithFields(log.Fields{"code": cmd.Code, "previous_code": cmd.CurrentCode}).Info("product updated")
	return nil
}

// Delete удаляет товар, если его код не встречается в позициях заказов.
func (s *Service) Delete(ctx context.Context, code string) error {
	start := time.Now()

	err := domain.RunInTx(ctx, s.store, func(tx domain.Tx) error {
		product, err := tx.Products().GetByCode(ctx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return notFound(code)
			}
			return fmt.Errorf("find product %q: %w", code, err)
		}

		referenced, err := tx.Orders().ExistsForProduct(ctx, code)
		if err != nil {
			return fmt.Errorf("check order lines of product %q: %w", code, err)
		}
		if referenced {
			return domain.Conflictf("product %s is referenced by orders and cannot be deleted", code)
		}

		if err := tx.Products().Delete(ctx, product.ID); err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		return nil
	})
	s.record("product_delete", start, err)
	if err != nil {
		return s.fail("product_delete", err, log.Fields{"code": code})
	}

	s.logger.WithField("code", code).Info("product deleted")
	return nil
}

// Get возвращает товар по коду.
func (s *Service) Get(ctx context.Context, code string) (domain.Product, error) {
	product, err := s.store.Products().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Product{}, notFound(code)
		}
		return domain.Product{}, s.fail("product_get", fmt.Errorf("find product %q: %w", code, err), log.Fields{"code": code})
	}
	return product, nil
}

// List возвращает весь каталог.
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	products, err := s.store.Products().List(ctx)
	if err != nil {
		return nil, s.fail("product_list", fmt.Errorf("list products: %w", err), nil)
	}
	return products, nil
}

func duplicateCode(code string) error {
	return domain.Conflictf("product with code %s already exists", code)
}

func notFound(code string) error {
	return domain.NotFoundf("product with code '%s' does not exist", code)
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
		s.logger.WithFields(fields).WithField("operation", operation).WithError(err).Error("product operation failed")
	}
	return err
}
