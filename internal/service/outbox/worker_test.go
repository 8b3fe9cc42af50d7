package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
	"github.com/vladislavdragonenkov/ordersvc/internal/metrics"
)

// orderEvent собирает outbox-сообщение так же, как его пишет сервис заказов.
func orderEvent(t *testing.T, id string, eventType domain.OrderEventType, orderID int64) domain.OutboxMessage {
	t.Helper()
	msg, err := domain.NewOrderEvent(eventType, domain.Order{
		ID:           orderID,
		OrderDate:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		CustomerCode: "C001",
		Total:        decimal.RequireFromString("30.00"),
		Lines: []domain.OrderLine{{
			ProductCode: "P001",
			Quantity:    3,
			UnitPrice:   decimal.RequireFromString("10.00"),
			Subtotal:    decimal.RequireFromString("30.00"),
		}},
	})
	require.NoError(t, err)
	msg.ID = id
	return msg
}

func TestWorker_PublishesOrderEventsInCommitOrder(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{
		orderEvent(t, "e1", domain.OrderEventCreated, 7),
		orderEvent(t, "e2", domain.OrderEventUpdated, 7),
		orderEvent(t, "e3", domain.OrderEventDeleted, 7),
	}}
	publisher := &stubPublisher{}

	NewWorker(repo, publisher, WithLogger(discardLogger()), WithRetryBaseDelay(0)).ProcessOnce(context.Background())

	require.Equal(t, []string{"e1", "e2", "e3"}, repo.sentIDs)
	require.Empty(t, repo.failedIDs)
	require.Equal(t, []string{"order.created", "order.updated", "order.deleted"}, publisher.eventTypes())
	for _, event := range publisher.published() {
		require.Equal(t, domain.AggregateTypeOrder, event.AggregateType)
		require.Equal(t, "7", event.AggregateID)
	}
}

func TestWorker_DeadLettersOrderEventAfterRetries(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{
		orderEvent(t, "e9", domain.OrderEventUpdated, 9),
	}}
	publisher := &stubPublisher{err: errors.New("broker down")}
	dlq := &stubPublisher{}
	reg := prometheus.NewRegistry()
	m := metrics.NewOutboxMetrics(reg)

	worker := NewWorker(repo, publisher,
		WithLogger(discardLogger()),
		WithMetrics(m),
		WithDLQPublisher(dlq),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)
	worker.ProcessOnce(context.Background())

	require.Equal(t, 3, publisher.calls())
	require.Empty(t, repo.sentIDs)
	require.Equal(t, []string{"e9"}, repo.failedIDs)
	require.Equal(t, 3.0, testutil.ToFloat64(m.PublishAttempts().WithLabelValues(metrics.OutboxRetryError)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.PublishAttempts().WithLabelValues(metrics.OutboxFailed)))

	dead := dlq.published()
	require.Len(t, dead, 1)
	require.Equal(t, "e9", dead[0].ID)
	require.Equal(t, "order.updated", dead[0].EventType)

	var letter struct {
		OutboxID     string                   `json:"outbox_id"`
		EventType    string                   `json:"event_type"`
		Payload      domain.OrderEventPayload `json:"payload"`
		PublishError string                   `json:"publish_error"`
	}
	require.NoError(t, json.Unmarshal(dead[0].Payload, &letter))
	require.Equal(t, "e9", letter.OutboxID)
	require.Equal(t, "order.updated", letter.EventType)
	require.Equal(t, int64(9), letter.Payload.OrderID)
	require.Equal(t, "30.00", letter.Payload.Total.StringFixed(2))
	require.Contains(t, letter.PublishError, "broker down")
}

func TestWorker_DeadLetterFailureStillMarksFailed(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{
		orderEvent(t, "e4", domain.OrderEventCreated, 4),
	}}
	reg := prometheus.NewRegistry()
	m := metrics.NewOutboxMetrics(reg)

	NewWorker(repo, &stubPublisher{err: errors.New("broker down")},
		WithLogger(discardLogger()),
		WithMetrics(m),
		WithDLQPublisher(&stubPublisher{err: errors.New("dlq down")}),
		WithRetryBaseDelay(0),
		WithMaxAttempts(1),
	).ProcessOnce(context.Background())

	require.Equal(t, []string{"e4"}, repo.failedIDs)
	require.Equal(t, 1.0, testutil.ToFloat64(m.PublishAttempts().WithLabelValues(metrics.OutboxDLQFailed)))
}

func TestWorker_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{
		orderEvent(t, "e3", domain.OrderEventCreated, 3),
	}}
	publisher := &stubPublisher{sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil}}

	NewWorker(repo, publisher, WithLogger(discardLogger()), WithRetryBaseDelay(0), WithMaxAttempts(3)).
		ProcessOnce(context.Background())

	require.Equal(t, 3, publisher.calls())
	require.Equal(t, []string{"e3"}, repo.sentIDs)
	require.Empty(t, repo.failedIDs)
}

func TestWorker_RetryBackoffDoubles(t *testing.T) {
	t.Parallel()

	worker := NewWorker(&stubOutboxRepo{}, &stubPublisher{}, WithRetryBaseDelay(10*time.Millisecond))
	require.Equal(t, 10*time.Millisecond, worker.retryBackoff(1))
	require.Equal(t, 20*time.Millisecond, worker.retryBackoff(2))
	require.Equal(t, 40*time.Millisecond, worker.retryBackoff(3))

	require.Zero(t, NewWorker(&stubOutboxRepo{}, &stubPublisher{}, WithRetryBaseDelay(0)).retryBackoff(5))
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker(&stubOutboxRepo{}, &stubPublisher{},
		WithLogger(discardLogger()),
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

type stubOutboxRepo struct {
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

func (s *stubOutboxRepo) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	return msg, nil
}

func (s *stubOutboxRepo) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 || limit >= len(s.pending) {
		return append([]domain.OutboxMessage(nil), s.pending...), nil
	}
	return append([]domain.OutboxMessage(nil), s.pending[:limit]...), nil
}

func (s *stubOutboxRepo) Stats(context.Context) (domain.OutboxStats, error) {
	stats := domain.OutboxStats{PendingCount: len(s.pending)}
	if len(s.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (s *stubOutboxRepo) MarkSent(_ context.Context, id string) error {
	s.sentIDs = append(s.sentIDs, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailed(_ context.Context, id string) error {
	s.failedIDs = append(s.failedIDs, id)
	return nil
}

// stubPublisher запоминает успешно опубликованные события.
type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	callCount      int
	events         []domain.OutboxMessage
}

func (s *stubPublisher) Publish(_ context.Context, event domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	err := s.err
	if len(s.sequenceErrors) > 0 {
		err = s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
	}
	if err == nil {
		s.events = append(s.events, event)
	}
	return err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubPublisher) published() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.events...)
}

func (s *stubPublisher) eventTypes() []string {
	var types []string
	for _, event := range s.published() {
		types = append(types, event.EventType)
	}
	return types
}

var (
	_ domain.OutboxRepository = (*stubOutboxRepo)(nil)
	_ domain.OutboxPublisher  = (*stubPublisher)(nil)
)
