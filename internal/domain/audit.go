package domain

import "time"

// Действия, фиксируемые в аудите мутирующих операций.
const (
	AuditOrderCreated   = "order.created"
	AuditOrderCancelled = "order.cancelled"
	AuditOrderDeleted   = "order.deleted"
	AuditOrderStatusSet = "order.status_changed"
	AuditPOCreated      = "purchase_order.created"
	AuditPOSent         = "purchase_order.sent"
	AuditPOConfirmed    = "purchase_order.confirmed"
	AuditPOReceived     = "purchase_order.received"
	AuditPOCancelled    = "purchase_order.cancelled"
)

// Типы сущностей аудита.
const (
	AuditEntityOrder         = "order"
	AuditEntityPurchaseOrder = "purchase_order"
)

// AuditRecord — структурированная запись аудита мутирующей операции.
// Формат хранения на стороне потребителя вне зоны ответственности движка.
type AuditRecord struct {
	ID      string
	ActorID string
	// Action — вид действия, например order.created.
	Action     string
	EntityType string
	EntityID   string
	// Payload — JSON с деталями изменения.
	Payload    []byte
	OccurredAt time.Time
}

// AuditOutbox буферизует записи аудита до публикации во внешний sink.
type AuditOutbox interface {
	Enqueue(rec AuditRecord) (AuditRecord, error)
	PullPending(limit int) ([]AuditRecord, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// AuditPublisher доставляет запись аудита внешнему потребителю.
type AuditPublisher interface {
	// Publish передаёт запись наружу; должен быть идемпотентным.
	Publish(rec AuditRecord) error
}

// OutboxStats описывает текущее состояние backlog outbox-буфера аудита.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
