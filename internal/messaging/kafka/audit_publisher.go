package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// eventProducer абстрагирует producer для тестов.
type eventProducer interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// AuditPublisher отправляет записи аудита в topic ims.audit.events.
type AuditPublisher struct {
	producer eventProducer
	topic    string
}

// NewAuditPublisher создаёт publisher поверх Kafka producer-а.
func NewAuditPublisher(producer *Producer) *AuditPublisher {
	return &AuditPublisher{producer: producer, topic: TopicAuditEvents}
}

// Publish публикует запись аудита. Ключ сообщения — идентификатор сущности,
// так события одной сущности сохраняют порядок внутри партиции.
func (p *AuditPublisher) Publish(rec domain.AuditRecord) error {
	event := AuditEvent{
		AuditID:    rec.ID,
		ActorID:    rec.ActorID,
		Action:     rec.Action,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Payload:    rec.Payload,
		OccurredAt: rec.OccurredAt,
		SentAt:     time.Now().UTC(),
	}
	return p.producer.PublishEvent(p.topic, rec.EntityID, event)
}

var _ domain.AuditPublisher = (*AuditPublisher)(nil)
