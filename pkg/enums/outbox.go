package enums

// OutboxEventType enumerates the events the core emits through the outbox.
type OutboxEventType string

const (
	EventPriceUpdated       OutboxEventType = "price.updated"
	EventSupplierValidated  OutboxEventType = "supplier.validated"
	EventConnectionDisabled OutboxEventType = "connection_pair.disabled"
)

// OutboxAggregateType names the aggregate an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregatePriceSnapshot  OutboxAggregateType = "price_snapshot"
	AggregateSupplier       OutboxAggregateType = "supplier"
	AggregateConnectionPair OutboxAggregateType = "connection_pair"
)
