package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPipelineMetrics(reg)

	metrics.ObserveFinalize("published", 250*time.Millisecond)
	metrics.IncPurchase("granted")
	metrics.IncPurchase("insufficient_credits")
	metrics.AddCreditsGranted(10)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "upload_finalize_total", "outcome", "published"); err != nil {
		t.Fatalf("fetch finalize: %v", err)
	} else if got != 1 {
		t.Fatalf("expected finalize=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "purchase_total", "outcome", "granted"); err != nil {
		t.Fatalf("fetch purchase: %v", err)
	} else if got != 1 {
		t.Fatalf("expected granted=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "purchase_total", "outcome", "insufficient_credits"); err != nil {
		t.Fatalf("fetch purchase: %v", err)
	} else if got != 1 {
		t.Fatalf("expected insufficient_credits=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "upload_finalize_duration_seconds", "outcome", "published"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	mf := findMetricFamily(mfs, "credits_granted_total")
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatal("credits_granted_total not found")
	}
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 10 {
		t.Fatalf("expected credits=10, got %f", got)
	}
}

func TestPipelineMetricsNilRegisterer(t *testing.T) {
	metrics := NewPipelineMetrics(nil)
	metrics.ObserveFinalize("published", time.Second)
	metrics.IncPurchase("granted")
	metrics.AddCreditsGranted(5)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
