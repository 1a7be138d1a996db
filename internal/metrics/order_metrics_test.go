package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewOrderMetrics(t *testing.T) {
	metrics := NewOrderMetrics()

	if metrics == nil {
		t.Fatal("NewOrderMetrics should not return nil")
	}

	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}

	if metrics.ordersUpdated == nil {
		t.Error("ordersUpdated counter should not be nil")
	}

	if metrics.ordersDeleted == nil {
		t.Error("ordersDeleted counter should not be nil")
	}

	if metrics.operationDuration == nil {
		t.Error("operationDuration histogram vec should not be nil")
	}

	if metrics.cacheHits == nil {
		t.Error("cacheHits counter should not be nil")
	}

	if metrics.cacheMisses == nil {
		t.Error("cacheMisses counter should not be nil")
	}

	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
}

func TestNewOrderMetricsReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newOrderMetricsWithRegisterer(reg)
	second := newOrderMetricsWithRegisterer(reg)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	metric := &dto.Metric{}
	if err := first.ordersCreated.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	// Повторная регистрация возвращает тот же collector.
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordOrderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newOrderMetricsWithRegisterer(reg)

	metrics.RecordOrderCreated()
	metrics.RecordOrderCreated()
	metrics.RecordOrderUpdated()
	metrics.RecordOrderDeleted()

	created := &dto.Metric{}
	if err := metrics.ordersCreated.Write(created); err != nil {
		t.Fatalf("failed to write created counter: %v", err)
	}
	if created.Counter.GetValue() != 2.0 {
		t.Errorf("expected 2 created, got %f", created.Counter.GetValue())
	}

	updated := &dto.Metric{}
	if err := metrics.ordersUpdated.Write(updated); err != nil {
		t.Fatalf("failed to write updated counter: %v", err)
	}
	if updated.Counter.GetValue() != 1.0 {
		t.Errorf("expected 1 updated, got %f", updated.Counter.GetValue())
	}

	deleted := &dto.Metric{}
	if err := metrics.ordersDeleted.Write(deleted); err != nil {
		t.Fatalf("failed to write deleted counter: %v", err)
	}
	if deleted.Counter.GetValue() != 1.0 {
		t.Errorf("expected 1 deleted, got %f", deleted.Counter.GetValue())
	}
}

func TestRecordOperationDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newOrderMetricsWithRegisterer(reg)

	metrics.RecordOperationDuration("create", 100*time.Millisecond)
	metrics.RecordOperationDuration("create", 500*time.Millisecond)
	metrics.RecordOperationDuration("get", 10*time.Millisecond)

	createMetric := &dto.Metric{}
	observer := metrics.operationDuration.WithLabelValues("create")
	if err := observer.(prometheus.Histogram).Write(createMetric); err != nil {
		t.Fatalf("failed to write create histogram: %v", err)
	}

	if createMetric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 samples for create, got %d", createMetric.Histogram.GetSampleCount())
	}

	// Check sum is approximately correct (0.1 + 0.5 = 0.6)
	sum := createMetric.Histogram.GetSampleSum()
	if sum < 0.55 || sum > 0.65 {
		t.Errorf("expected sum around 0.6, got %f", sum)
	}
}

func TestRecordCacheHitsAndMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newOrderMetricsWithRegisterer(reg)

	metrics.RecordCacheHit()
	metrics.RecordCacheHit()
	metrics.RecordCacheMiss()

	hits := &dto.Metric{}
	if err := metrics.cacheHits.Write(hits); err != nil {
		t.Fatalf("failed to write hits counter: %v", err)
	}
	if hits.Counter.GetValue() != 2.0 {
		t.Errorf("expected 2 hits, got %f", hits.Counter.GetValue())
	}

	misses := &dto.Metric{}
	if err := metrics.cacheMisses.Write(misses); err != nil {
		t.Fatalf("failed to write misses counter: %v", err)
	}
	if misses.Counter.GetValue() != 1.0 {
		t.Errorf("expected 1 miss, got %f", misses.Counter.GetValue())
	}
}

func TestRecordOutboxEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newOrderMetricsWithRegisterer(reg)

	metrics.RecordOutboxEvent()
	metrics.RecordOutboxEvent()

	metric := &dto.Metric{}
	if err := metrics.outboxEvents.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}
