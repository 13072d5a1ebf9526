package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

type auditOutboxRepository struct {
	db *sql.DB
}

// NewAuditOutboxRepository создаёт PostgreSQL-реализацию AuditOutbox.
func NewAuditOutboxRepository(store *Store) domain.AuditOutbox {
	return &auditOutboxRepository{db: store.DB()}
}

func (r *auditOutboxRepository) Enqueue(rec domain.AuditRecord) (domain.AuditRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	payload := rec.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_outbox (
			id, actor_id, action, entity_type, entity_id, payload,
			status, attempt_count, occurred_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,'pending',0,$7,$8,$9)
	`,
		rec.ID, rec.ActorID, rec.Action, rec.EntityType, rec.EntityID,
		payload, rec.OccurredAt, now, now,
	)
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("enqueue audit record: %w", err)
	}

	return rec, nil
}

func (r *auditOutboxRepository) PullPending(limit int) ([]domain.AuditRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor_id, action, entity_type, entity_id, payload, occurred_at
		FROM audit_outbox
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending audit records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.AuditRecord, 0)
	for rows.Next() {
		var rec domain.AuditRecord
		if err := rows.Scan(
			&rec.ID, &rec.ActorID, &rec.Action, &rec.EntityType,
			&rec.EntityID, &rec.Payload, &rec.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}

	return records, nil
}

func (r *auditOutboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var stats domain.OutboxStats
	var oldest sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(created_at)
		FROM audit_outbox
		WHERE status = 'pending'
	`).Scan(&stats.PendingCount, &oldest)
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("query audit outbox stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time
	}

	return stats, nil
}

func (r *auditOutboxRepository) MarkSent(id string) error {
	return r.markStatus(id, "sent")
}

func (r *auditOutboxRepository) MarkFailed(id string) error {
	return r.markStatus(id, "failed")
}

func (r *auditOutboxRepository) markStatus(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE audit_outbox
		SET status = $2,
		    attempt_count = attempt_count + 1,
		    updated_at = NOW()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("mark audit record %s: %w", status, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrAuditRecordNotFound
	}

	return nil
}

var _ domain.AuditOutbox = (*auditOutboxRepository)(nil)
