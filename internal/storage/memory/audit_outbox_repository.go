package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// auditRecordEntry хранит запись аудита и служебные поля in-memory буфера.
type auditRecordEntry struct {
	rec        domain.AuditRecord
	status     string
	attemptCnt int
	seq        int64
	createdAt  time.Time
	updatedAt  time.Time
}

// auditOutboxInMemory — простое in-memory хранилище для буфера аудита.
type auditOutboxInMemory struct {
	mu      sync.RWMutex
	records map[string]*auditRecordEntry
	seq     int64
}

// NewAuditOutboxRepository создаёт in-memory реализацию AuditOutbox.
func NewAuditOutboxRepository() domain.AuditOutbox {
	return &auditOutboxInMemory{records: make(map[string]*auditRecordEntry)}
}

// Enqueue сохраняет запись со статусом `pending` и возвращает её идентификатор.
func (r *auditOutboxInMemory) Enqueue(rec domain.AuditRecord) (domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}

	r.seq++
	now := time.Now().UTC()
	r.records[rec.ID] = &auditRecordEntry{
		rec:       rec,
		status:    "pending",
		seq:       r.seq,
		createdAt: now,
		updatedAt: now,
	}
	return rec, nil
}

// PullPending возвращает до limit записей со статусом `pending` в порядке постановки.
func (r *auditOutboxInMemory) PullPending(limit int) ([]domain.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	pending := make([]*auditRecordEntry, 0, len(r.records))
	for _, entry := range r.records {
		if entry.status == "pending" {
			pending = append(pending, entry)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].seq < pending[j].seq
	})

	result := make([]domain.AuditRecord, 0, limit)
	for _, entry := range pending {
		result = append(result, entry.rec)
		if len(result) >= limit {
			break
		}
	}

	return result, nil
}

// Stats возвращает размер и возраст backlog буфера.
func (r *auditOutboxInMemory) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, entry := range r.records {
		if entry.status != "pending" {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || entry.createdAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = entry.createdAt
		}
	}
	return stats, nil
}

// MarkSent обновляет статус записи после успешной публикации.
func (r *auditOutboxInMemory) MarkSent(id string) error {
	return r.markStatus(id, "sent")
}

// MarkFailed фиксирует ошибку публикации.
func (r *auditOutboxInMemory) MarkFailed(id string) error {
	return r.markStatus(id, "failed")
}

func (r *auditOutboxInMemory) markStatus(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.records[id]
	if !ok {
		return domain.ErrAuditRecordNotFound
	}
	entry.status = status
	entry.attemptCnt++
	entry.updatedAt = time.Now().UTC()
	return nil
}

var _ domain.AuditOutbox = (*auditOutboxInMemory)(nil)
