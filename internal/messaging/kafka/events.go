package kafka

import (
	"encoding/json"
	"time"
)

// Topics для Kafka
const (
	TopicAuditEvents = "ims.audit.events"
)

// AuditEvent — envelope записи аудита в topic ims.audit.events.
// Payload несёт исходный JSON-payload записи без повторной сериализации.
type AuditEvent struct {
	AuditID    string          `json:"audit_id"`
	ActorID    string          `json:"actor_id,omitempty"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	SentAt     time.Time       `json:"sent_at"`
}
