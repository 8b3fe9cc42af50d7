package outbox

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

// LoggingPublisher пишет события в лог. Используется, когда брокер не настроен.
type LoggingPublisher struct {
	logger *log.Entry
}

// NewLoggingPublisher создаёт publisher, логирующий события.
func NewLoggingPublisher(logger *log.Entry) *LoggingPublisher {
	if logger == nil {
		logger = log.WithField("component", "outbox-log-publisher")
	}
	return &LoggingPublisher{logger: logger}
}

// Publish логирует событие и всегда завершается успешно, пока ctx не отменён.
func (p *LoggingPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.WithFields(log.Fields{
		"outbox_id":      event.ID,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"event_type":     event.EventType,
	}).Info(string(event.Payload))
	return nil
}

var _ domain.OutboxPublisher = (*LoggingPublisher)(nil)
