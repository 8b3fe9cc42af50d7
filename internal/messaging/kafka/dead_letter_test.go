package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeDeadLetter(t *testing.T) {
	occurred := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	inner, err := json.Marshal(map[string]any{
		"outbox_id":      "evt-1",
		"aggregate_type": "order",
		"aggregate_id":   "42",
		"event_type":     "order.created",
		"payload":        json.RawMessage(`{"order_id":42}`),
		"publish_error":  "broker unavailable",
	})
	require.NoError(t, err)

	value, err := json.Marshal(Envelope{
		ID:          "evt-1",
		EventType:   "order.created",
		Payload:     inner,
		OccurredAt:  occurred,
		PublishedAt: occurred.Add(time.Minute),
	})
	require.NoError(t, err)

	event, reason, err := DecodeDeadLetter(value)
	require.NoError(t, err)
	require.Equal(t, "evt-1", event.ID)
	require.Equal(t, "order", event.AggregateType)
	require.Equal(t, "42", event.AggregateID)
	require.Equal(t, "order.created", event.EventType)
	require.JSONEq(t, `{"order_id":42}`, string(event.Payload))
	require.Equal(t, occurred, event.CreatedAt)
	require.Equal(t, "broker unavailable", reason)
}

func TestDecodeDeadLetter_NotDeadLetter(t *testing.T) {
	for _, value := range []string{`not json`, `{"id":"x"}`, `[]`} {
		_, _, err := DecodeDeadLetter([]byte(value))
		require.True(t, errors.Is(err, ErrNotDeadLetter), value)
	}
}

func TestDecodeDeadLetter_BrokenPayload(t *testing.T) {
	_, _, err := DecodeDeadLetter([]byte(`{"id":"evt","payload":"just a string"}`))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotDeadLetter))

	_, _, err = DecodeDeadLetter([]byte(`{"id":"evt","payload":{"outbox_id":"evt"}}`))
	require.ErrorContains(t, err, "original event payload")
}
