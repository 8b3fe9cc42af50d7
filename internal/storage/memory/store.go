package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

// ErrTxDone возвращается при обращении к уже завершённой транзакции.
var ErrTxDone = errors.New("memory: transaction has already been committed or rolled back")

// state: полный снимок данных хранилища.
type state struct {
	nextCustomerID int64
	nextProductID  int64
	nextOrderID    int64
	nextLineID     int64

	customers map[int64]domain.Customer
	products  map[int64]domain.Product
	// orders хранит только заголовки; позиции лежат в lines в порядке вставки.
	orders map[int64]domain.Order
	lines  map[int64][]domain.OrderLine
	outbox []outboxRecord
}

func newState() *state {
	return &state{
		customers: make(map[int64]domain.Customer),
		products:  make(map[int64]domain.Product),
		orders:    make(map[int64]domain.Order),
		lines:     make(map[int64][]domain.OrderLine),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextCustomerID: s.nextCustomerID,
		nextProductID:  s.nextProductID,
		nextOrderID:    s.nextOrderID,
		nextLineID:     s.nextLineID,
		customers:      make(map[int64]domain.Customer, len(s.customers)),
		products:       make(map[int64]domain.Product, len(s.products)),
		orders:         make(map[int64]domain.Order, len(s.orders)),
		lines:          make(map[int64][]domain.OrderLine, len(s.lines)),
		outbox:         make([]outboxRecord, len(s.outbox)),
	}
	for id, v := range s.customers {
		c.customers[id] = v
	}
	for id, v := range s.products {
		c.products[id] = v
	}
	for id, v := range s.orders {
		c.orders[id] = v
	}
	for id, v := range s.lines {
		c.lines[id] = append([]domain.OrderLine(nil), v...)
	}
	copy(c.outbox, s.outbox)
	return c
}

// scope выполняет операции репозиториев либо напрямую в хранилище, либо в транзакции.
type scope interface {
	read(ctx context.Context, fn func(st *state) error) error
	write(ctx context.Context, fn func(st *state) error) error
}

// Store: транзакционное in-memory хранилище для локальной разработки и тестов.
// Одновременно открыта не более одной пишущей транзакции; каждая работает
// над своей копией данных, которая подменяет текущую при Commit.
type Store struct {
	mu      sync.RWMutex
	current *state
	// writer: семафор пишущих транзакций, канал нужен для отмены ожидания через ctx.
	writer chan struct{}
	now     func() time.Time
}

// NewStore возвращает пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		current: newState(),
		writer:  make(chan struct{}, 1),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Customers() domain.CustomerRepository { return &customerRepository{scope: s} }
func (s *Store) Products() domain.ProductRepository   { return &productRepository{scope: s} }
func (s *Store) Orders() domain.OrderRepository       { return &orderRepository{scope: s} }
func (s *Store) Outbox() domain.OutboxRepository      { return &outboxRepository{scope: s, now: s.now} }

// Ping всегда успешен, пока хранилище создано.
func (s *Store) Ping(context.Context) error {
	if s == nil {
		return errors.New("memory store is not initialized")
	}
	return nil
}

// Close ничего не освобождает.
func (s *Store) Close() error { return nil }

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.writer
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

func (s *Store) publish(st *state) {
	s.mu.Lock()
	s.current = st
	s.mu.Unlock()
}

func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.current)
}

// write вне транзакции меняет текущее состояние на месте: семафор исключает
// открытую транзакцию, mu исключает читателей. Операции репозиториев
// проверяют условия до первой мутации, поэтому ошибка оставляет состояние нетронутым.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.current)
}

// BeginTx открывает транзакцию. Если ctx отменяется до Commit, транзакция откатывается.
func (s *Store) BeginTx(ctx context.Context) (domain.Tx, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	t := &tx{
		store: s,
		ctx:   ctx,
		work:  s.snapshot(),
		done:  make(chan struct{}),
	}
	go t.watch()
	return t, nil
}

type tx struct {
	store *Store
	ctx   context.Context

	mu     sync.Mutex
	work   *state
	closed bool
	done   chan struct{}
}

func (t *tx) Customers() domain.CustomerRepository { return &customerRepository{scope: t} }
func (t *tx) Products() domain.ProductRepository   { return &productRepository{scope: t} }
func (t *tx) Orders() domain.OrderRepository       { return &orderRepository{scope: t} }
func (t *tx) Outbox() domain.OutboxRepository      { return &outboxRepository{scope: t, now: t.store.now} }

func (t *tx) watch() {
	select {
	case <-t.ctx.Done():
		_ = t.finish(false)
	case <-t.done:
	}
}

func (t *tx) read(ctx context.Context, fn func(st *state) error) error {
	return t.write(ctx, fn)
}

func (t *tx) write(ctx context.Context, fn func(st *state) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTxDone
	}
	if err := t.ctx.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t.work)
}

func (t *tx) Commit() error {
	if err := t.ctx.Err(); err != nil {
		_ = t.finish(false)
		return err
	}
	return t.finish(true)
}

func (t *tx) Rollback() error {
	return t.finish(false)
}

func (t *tx) finish(commit bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTxDone
	}
	t.closed = true
	close(t.done)

	if commit {
		t.store.publish(t.work)
	}
	t.work = nil
	t.store.release()
	return nil
}

var (
	_ domain.Store = (*Store)(nil)
	_ domain.Tx    = (*tx)(nil)
)
