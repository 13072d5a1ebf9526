package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics содержит метрики операций движка исполнения заказов.
type FulfillmentMetrics struct {
	// Счётчики операций
	ordersCreated    prometheus.Counter
	ordersCancelled  prometheus.Counter
	stockRejections  prometheus.Counter
	lowStockWarnings prometheus.Counter
	poCreated        prometheus.Counter
	poReceipts       prometheus.Counter
	auditRecords     prometheus.Counter

	// Гистограмма времени выполнения операций
	opDuration *prometheus.HistogramVec
}

// NewFulfillmentMetrics создаёт метрики с регистрацией в default registerer.
func NewFulfillmentMetrics() *FulfillmentMetrics {
	return newFulfillmentMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newFulfillmentMetricsWithRegisterer(registerer prometheus.Registerer) *FulfillmentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &FulfillmentMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_orders_cancelled_total",
			Help: "Total number of orders cancelled with stock restored",
		}),
		stockRejections: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_stock_rejections_total",
			Help: "Total number of operations rejected due to insufficient stock",
		}),
		lowStockWarnings: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_low_stock_warnings_total",
			Help: "Total number of low stock threshold crossings observed",
		}),
		poCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_purchase_orders_created_total",
			Help: "Total number of purchase orders created",
		}),
		poReceipts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_purchase_order_receipts_total",
			Help: "Total number of purchase order receiving events applied",
		}),
		auditRecords: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_audit_records_total",
			Help: "Total number of audit records enqueued",
		}),
		opDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "ims_operation_duration_seconds",
			Help:    "Duration of fulfillment engine operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *FulfillmentMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *FulfillmentMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
}

// RecordStockRejection увеличивает счётчик отказов из-за нехватки остатка.
func (m *FulfillmentMetrics) RecordStockRejection() {
	m.stockRejections.Inc()
}

// RecordLowStockWarning увеличивает счётчик срабатываний порога остатка.
func (m *FulfillmentMetrics) RecordLowStockWarning() {
	m.lowStockWarnings.Inc()
}

// RecordPOCreated увеличивает счётчик созданных заявок на закупку.
func (m *FulfillmentMetrics) RecordPOCreated() {
	m.poCreated.Inc()
}

// RecordPOReceipt увеличивает счётчик применённых приёмок.
func (m *FulfillmentMetrics) RecordPOReceipt() {
	m.poReceipts.Inc()
}

// RecordAuditRecord увеличивает счётчик записей аудита.
func (m *FulfillmentMetrics) RecordAuditRecord() {
	m.auditRecords.Inc()
}

// RecordOpDuration записывает время выполнения операции.
func (m *FulfillmentMetrics) RecordOpDuration(op string, duration time.Duration) {
	m.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}
