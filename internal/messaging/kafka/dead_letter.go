package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

// ErrNotDeadLetter: сообщение не похоже на outbox-событие из DLQ.
var ErrNotDeadLetter = errors.New("message is not an outbox dead letter")

// DeadLetterPayload: payload события в DLQ: исходное событие outbox и ошибка публикации.
type DeadLetterPayload struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
}

// DecodeDeadLetter восстанавливает исходное outbox-событие из значения
// сообщения DLQ. Второе значение: ошибка, из-за которой событие попало в DLQ.
func DecodeDeadLetter(value []byte) (domain.OutboxMessage, string, error) {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil || len(envelope.Payload) == 0 {
		return domain.OutboxMessage{}, "", ErrNotDeadLetter
	}

	var dl DeadLetterPayload
	if err := json.Unmarshal(envelope.Payload, &dl); err != nil {
		return domain.OutboxMessage{}, "", fmt.Errorf("decode dead letter payload: %w", err)
	}
	if len(dl.Payload) == 0 {
		return domain.OutboxMessage{}, "", errors.New("dead letter does not contain original event payload")
	}

	return domain.OutboxMessage{
		ID:            firstNonEmpty(dl.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(dl.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(dl.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(dl.EventType, envelope.EventType),
		Payload:       []byte(dl.Payload),
		CreatedAt:     envelope.OccurredAt,
	}, dl.PublishError, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
