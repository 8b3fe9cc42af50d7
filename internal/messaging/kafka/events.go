package kafka

// Topics для Kafka
const (
	TopicOrderEvents     = "ordersvc.order.events"
	TopicDeadLetterQueue = "ordersvc.order.events.dlq"
)

// Kafka headers публикуемых событий
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)
