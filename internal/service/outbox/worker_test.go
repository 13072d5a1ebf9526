package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/service/outbox"
	"github.com/vladislavdragonenkov/ims/internal/storage/memory"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: false, DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

type stubPublisher struct {
	mu        sync.Mutex
	published []domain.AuditRecord
	failures  int
}

func (p *stubPublisher) Publish(rec domain.AuditRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, rec)
	return nil
}

func (p *stubPublisher) records() []domain.AuditRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.AuditRecord(nil), p.published...)
}

func enqueue(t *testing.T, buf domain.AuditOutbox, entityID string) domain.AuditRecord {
	t.Helper()
	rec, err := buf.Enqueue(domain.AuditRecord{
		ActorID:    "user-1",
		Action:     domain.AuditOrderCreated,
		EntityType: domain.AuditEntityOrder,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return rec
}

func TestWorker_ProcessOncePublishesAndMarksSent(t *testing.T) {
	buf := memory.NewAuditOutboxRepository()
	publisher := &stubPublisher{}

	first := enqueue(t, buf, "order-1")
	second := enqueue(t, buf, "order-2")

	worker := outbox.NewWorker(buf, publisher, outbox.WithLogger(loggerForTests()))
	worker.ProcessOnce(context.Background())

	records := publisher.records()
	require.Len(t, records, 2)
	require.Equal(t, first.ID, records[0].ID)
	require.Equal(t, second.ID, records[1].ID)

	pending, err := buf.PullPending(10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestWorker_RetriesTransientFailures(t *testing.T) {
	buf := memory.NewAuditOutboxRepository()
	publisher := &stubPublisher{failures: 2}

	rec := enqueue(t, buf, "order-1")

	worker := outbox.NewWorker(buf, publisher,
		outbox.WithLogger(loggerForTests()),
		outbox.WithMaxAttempts(3),
		outbox.WithRetryBaseDelay(time.Millisecond),
	)
	worker.ProcessOnce(context.Background())

	records := publisher.records()
	require.Len(t, records, 1)
	require.Equal(t, rec.ID, records[0].ID)

	pending, err := buf.PullPending(10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestWorker_MarksFailedAfterExhaustedRetries(t *testing.T) {
	buf := memory.NewAuditOutboxRepository()
	publisher := &stubPublisher{failures: 10}

	enqueue(t, buf, "order-1")

	worker := outbox.NewWorker(buf, publisher,
		outbox.WithLogger(loggerForTests()),
		outbox.WithMaxAttempts(2),
		outbox.WithRetryBaseDelay(time.Millisecond),
	)
	worker.ProcessOnce(context.Background())

	require.Empty(t, publisher.records())

	// Запись помечена failed и не возвращается в pending.
	pending, err := buf.PullPending(10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestWorker_RespectsBatchSize(t *testing.T) {
	buf := memory.NewAuditOutboxRepository()
	publisher := &stubPublisher{}

	for i := 0; i < 5; i++ {
		enqueue(t, buf, "order-1")
	}

	worker := outbox.NewWorker(buf, publisher,
		outbox.WithLogger(loggerForTests()),
		outbox.WithBatchSize(2),
	)
	worker.ProcessOnce(context.Background())

	require.Len(t, publisher.records(), 2)

	stats, err := buf.Stats()
	require.NoError(t, err)
	require.Equal(t, 3, stats.PendingCount)
}

func TestWorker_RunStopsOnContextCancel(t *testing.T) {
	buf := memory.NewAuditOutboxRepository()
	publisher := &stubPublisher{}
	enqueue(t, buf, "order-1")

	worker := outbox.NewWorker(buf, publisher,
		outbox.WithLogger(loggerForTests()),
		outbox.WithPollInterval(5*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(publisher.records()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
