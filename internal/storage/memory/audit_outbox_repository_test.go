package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/storage/memory"
)

func TestAuditOutbox_EnqueuePullOrder(t *testing.T) {
	outbox := memory.NewAuditOutboxRepository()

	first, err := outbox.Enqueue(domain.AuditRecord{
		ActorID:    "user-1",
		Action:     domain.AuditOrderCreated,
		EntityType: domain.AuditEntityOrder,
		EntityID:   "order-1",
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("enqueue must assign an id")
	}
	if first.OccurredAt.IsZero() {
		t.Fatal("enqueue must stamp occurred_at")
	}

	second, err := outbox.Enqueue(domain.AuditRecord{
		ActorID:    "user-1",
		Action:     domain.AuditOrderCancelled,
		EntityType: domain.AuditEntityOrder,
		EntityID:   "order-1",
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending records, got %d", len(pending))
	}
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Fatal("pending records must keep enqueue order")
	}

	limited, err := outbox.PullPending(1)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != first.ID {
		t.Fatal("limit must return the oldest record first")
	}
}

func TestAuditOutbox_MarkSentRemovesFromPending(t *testing.T) {
	outbox := memory.NewAuditOutboxRepository()

	rec, err := outbox.Enqueue(domain.AuditRecord{
		Action:     domain.AuditPOCreated,
		EntityType: domain.AuditEntityPurchaseOrder,
		EntityID:   "po-1",
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := outbox.MarkSent(rec.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty pending set, got %d", len(pending))
	}

	if err := outbox.MarkSent("missing"); !errors.Is(err, domain.ErrAuditRecordNotFound) {
		t.Fatalf("expected ErrAuditRecordNotFound, got %v", err)
	}
}

func TestAuditOutbox_Stats(t *testing.T) {
	outbox := memory.NewAuditOutboxRepository()

	stats, err := outbox.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("expected empty stats, got %+v", stats)
	}

	rec, err := outbox.Enqueue(domain.AuditRecord{
		Action:     domain.AuditOrderCreated,
		EntityType: domain.AuditEntityOrder,
		EntityID:   "order-1",
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := outbox.Enqueue(domain.AuditRecord{
		Action:     domain.AuditOrderCancelled,
		EntityType: domain.AuditEntityOrder,
		EntityID:   "order-1",
	}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stats, err = outbox.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Fatalf("expected 2 pending, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Fatal("expected oldest pending timestamp")
	}

	if err := outbox.MarkFailed(rec.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	stats, err = outbox.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Fatalf("failed record must leave pending set, got %d", stats.PendingCount)
	}
}
