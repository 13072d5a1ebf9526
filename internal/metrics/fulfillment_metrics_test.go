package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFulfillmentMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newFulfillmentMetricsWithRegisterer(registry)

	m.RecordOrderCreated()
	m.RecordOrderCreated()
	m.RecordOrderCancelled()
	m.RecordStockRejection()
	m.RecordLowStockWarning()
	m.RecordPOCreated()
	m.RecordPOReceipt()
	m.RecordAuditRecord()

	tests := []struct {
		counter prometheus.Counter
		want    float64
	}{
		{counter: m.ordersCreated, want: 2},
		{counter: m.ordersCancelled, want: 1},
		{counter: m.stockRejections, want: 1},
		{counter: m.lowStockWarnings, want: 1},
		{counter: m.poCreated, want: 1},
		{counter: m.poReceipts, want: 1},
		{counter: m.auditRecords, want: 1},
	}

	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.counter); got != tt.want {
			t.Errorf("counter value = %v, want %v", got, tt.want)
		}
	}
}

func TestFulfillmentMetrics_OpDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newFulfillmentMetricsWithRegisterer(registry)

	m.RecordOpDuration("create_order", 15*time.Millisecond)
	m.RecordOpDuration("create_order", 30*time.Millisecond)

	count := testutil.CollectAndCount(m.opDuration, "ims_operation_duration_seconds")
	if count != 1 {
		t.Fatalf("expected 1 labeled series, got %d", count)
	}
}

func TestFulfillmentMetrics_DoubleRegistrationReusesCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := newFulfillmentMetricsWithRegisterer(registry)
	second := newFulfillmentMetricsWithRegisterer(registry)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	if got := testutil.ToFloat64(first.ordersCreated); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}
