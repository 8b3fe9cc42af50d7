package domain

import (
	"context"
	"fmt"
)

// CustomerRepository описывает хранение клиентов.
type CustomerRepository interface {
	// Create сохраняет клиента и заполняет ID. ErrDuplicateKey при повторе Code или NationalID.
	Create(ctx context.Context, customer *Customer) error
	// Update перезаписывает клиента по ID. ErrNotFound, если его нет.
	Update(ctx context.Context, customer Customer) error
	// Delete удаляет клиента по ID. ErrNotFound, если его нет.
	Delete(ctx context.Context, id int64) error
	// GetByID возвращает клиента или ErrNotFound.
	GetByID(ctx context.Context, id int64) (Customer, error)
	// GetByCode возвращает клиента по бизнес-коду или ErrNotFound.
	GetByCode(ctx context.Context, code string) (Customer, error)
	// ListByCodes возвращает найденных клиентов; отсутствующие коды пропускаются.
	ListByCodes(ctx context.Context, codes []string) ([]Customer, error)
	List(ctx context.Context) ([]Customer, error)
	// CodeTaken проверяет занятость кода другим клиентом (excludeID=0: без исключений).
	CodeTaken(ctx context.Context, code string, excludeID int64) (bool, error)
	// NationalIDTaken проверяет занятость DNI другим клиентом.
	NationalIDTaken(ctx context.Context, nationalID string, excludeID int64) (bool, error)
}

// ProductRepository описывает хранение каталога товаров.
type ProductRepository interface {
	// Create сохраняет товар и заполняет ID. ErrDuplicateKey при повторе Code.
	Create(ctx context.Context, product *Product) error
	// Update перезаписывает товар по ID.
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id int64) error
	GetByCode(ctx context.Context, code string) (Product, error)
	// ListByCodes: пакетный поиск товаров по набору кодов.
	ListByCodes(ctx context.Context, codes []string) ([]Product, error)
	List(ctx context.Context) ([]Product, error)
	CodeTaken(ctx context.Context, code string, excludeID int64) (bool, error)
}

// OrderRepository описывает хранение заказов и их позиций.
type OrderRepository interface {
	// Create сохраняет только заголовок заказа и заполняет ID; позиции пишет InsertLines.
	Create(ctx context.Context, order *Order) error
	// Get возвращает заказ по ID (с позициями, если withLines) или ErrNotFound.
	Get(ctx context.Context, id int64, withLines bool) (Order, error)
	// List возвращает все заказы с позициями по возрастанию ID.
	List(ctx context.Context) ([]Order, error)
	// UpdateHeader перезаписывает дату, клиента и сумму заказа.
	UpdateHeader(ctx context.Context, order Order) error
	// InsertLines добавляет позиции в заданном порядке и заполняет их ID.
	InsertLines(ctx context.Context, orderID int64, lines []OrderLine) error
	DeleteLines(ctx context.Context, orderID int64) error
	// Delete удаляет заказ вместе с позициями.
	Delete(ctx context.Context, id int64) error
	// ExistsForCustomer сообщает, ссылается ли хоть один заказ на код клиента.
	ExistsForCustomer(ctx context.Context, customerCode string) (bool, error)
	// ExistsForProduct сообщает, ссылается ли хоть одна позиция на код товара.
	ExistsForProduct(ctx context.Context, productCode string) (bool, error)
}

// Repositories: набор репозиториев, работающих в одной области видимости
// (напрямую в хранилище или внутри транзакции).
type Repositories interface {
	Customers() CustomerRepository
	Products() ProductRepository
	Orders() OrderRepository
	Outbox() OutboxRepository
}

// Tx: открытая транзакция хранилища. После Commit или Rollback использовать нельзя.
type Tx interface {
	Repositories
	Commit() error
	Rollback() error
}

// Store: транзакционное хранилище сущностей.
type Store interface {
	Repositories
	// BeginTx открывает транзакцию; ctx действует на все операции внутри неё.
	BeginTx(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close() error
}

// RunInTx выполняет fn в транзакции: фиксирует при успехе и откатывает при любой ошибке.
// Ошибки fn возвращаются без обёртки, чтобы сохранить их вид.
func RunInTx(ctx context.Context, store Store, fn func(tx Tx) error) (err error) {
	tx, err := store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
