package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

var (
	auditPublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ims_audit_publish_attempts_total",
		Help: "Total number of audit publish attempts grouped by result.",
	}, []string{"result"})
	auditPendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ims_audit_pending_records",
		Help: "Current number of pending records in the audit outbox.",
	})
	auditOldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ims_audit_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending audit record.",
	})
)

// Options задаёт параметры worker-а публикации аудита.
type Options struct {
	Logger         *log.Entry
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) { opts.Logger = logger }
}

// WithPollInterval задаёт частоту опроса буфера аудита.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *Options) { opts.PollInterval = interval }
}

// WithBatchSize задаёт размер батча из буфера.
func WithBatchSize(batchSize int) Option {
	return func(opts *Options) { opts.BatchSize = batchSize }
}

// WithMaxAttempts задаёт число попыток публикации перед пометкой failed.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *Options) { opts.MaxAttempts = maxAttempts }
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *Options) { opts.RetryBaseDelay = delay }
}

// Worker публикует pending-записи аудита во внешний sink.
// Порядок доставки соответствует порядку постановки; доставка at-least-once,
// дедупликация остаётся на стороне потребителя.
type Worker struct {
	outbox         domain.AuditOutbox
	publisher      domain.AuditPublisher
	logger         *log.Entry
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewWorker создаёт worker публикации аудита.
func NewWorker(outbox domain.AuditOutbox, publisher domain.AuditPublisher, options ...Option) *Worker {
	opts := Options{
		PollInterval:   defaultPollInterval,
		BatchSize:      defaultBatchSize,
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "audit-worker")
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}

	return &Worker{
		outbox:         outbox,
		publisher:      publisher,
		logger:         logger,
		pollInterval:   opts.PollInterval,
		batchSize:      opts.BatchSize,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
	}
}

// Run запускает периодический polling буфера аудита до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.outbox == nil || w.publisher == nil {
		w.logger.Warn("audit worker is disabled: outbox or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один polling-цикл.
func (w *Worker) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.refreshBacklogMetrics()

	records, err := w.outbox.PullPending(w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending audit records")
		return
	}
	if len(records) == 0 {
		return
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			return
		}

		if err := w.publishWithRetry(ctx, rec); err != nil {
			w.logger.WithError(err).WithFields(log.Fields{
				"audit_id": rec.ID,
				"action":   rec.Action,
			}).Error("audit publish failed after retries")
			auditPublishAttempts.WithLabelValues("failed").Inc()

			if markErr := w.outbox.MarkFailed(rec.ID); markErr != nil {
				w.logger.WithError(markErr).WithField("audit_id", rec.ID).Warn("failed to mark audit record as failed")
			}
			continue
		}

		if err := w.outbox.MarkSent(rec.ID); err != nil {
			w.logger.WithError(err).WithField("audit_id", rec.ID).Warn("failed to mark audit record as sent")
		}
	}

	w.refreshBacklogMetrics()
}

func (w *Worker) publishWithRetry(ctx context.Context, rec domain.AuditRecord) error {
	var lastErr error

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.publisher.Publish(rec)
		if err == nil {
			auditPublishAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		lastErr = err
		auditPublishAttempts.WithLabelValues("retry_error").Inc()

		if attempt >= w.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.retryBackoff(attempt)):
		}
	}

	return fmt.Errorf("publish failed after %d attempts: %w", w.maxAttempts, lastErr)
}

func (w *Worker) refreshBacklogMetrics() {
	stats, err := w.outbox.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect audit backlog stats")
		return
	}

	auditPendingRecords.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		auditOldestPendingAge.Set(0)
		return
	}

	age := time.Since(stats.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	auditOldestPendingAge.Set(age)
}

func (w *Worker) retryBackoff(attempt int) time.Duration {
	delay := w.retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}
