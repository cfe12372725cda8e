package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records upload finalization and purchase outcomes.
type PipelineMetrics struct {
	finalizeDuration *prometheus.HistogramVec
	finalizeOutcome  *prometheus.CounterVec
	purchaseOutcome  *prometheus.CounterVec
	creditsGranted   prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	finalizeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upload_finalize_duration_seconds",
		Help:    "Duration of upload finalization in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	finalizeOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_finalize_total",
		Help: "Upload finalization attempts by outcome.",
	}, []string{"outcome"})
	purchaseOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_total",
		Help: "Purchase attempts by outcome.",
	}, []string{"outcome"})
	creditsGranted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credits_granted_total",
		Help: "Credits granted through completed top-ups.",
	})
	reg.MustRegister(finalizeDuration, finalizeOutcome, purchaseOutcome, creditsGranted)
	return &PipelineMetrics{
		finalizeDuration: finalizeDuration,
		finalizeOutcome:  finalizeOutcome,
		purchaseOutcome:  purchaseOutcome,
		creditsGranted:   creditsGranted,
	}
}

// ObserveFinalize records one finalization attempt with its duration.
func (p *PipelineMetrics) ObserveFinalize(outcome string, duration time.Duration) {
	if p == nil || p.finalizeDuration == nil {
		return
	}
	label := normalizeLabel(outcome)
	p.finalizeDuration.WithLabelValues(label).Observe(duration.Seconds())
	p.finalizeOutcome.WithLabelValues(label).Inc()
}

// IncPurchase increments the purchase counter for the given outcome.
func (p *PipelineMetrics) IncPurchase(outcome string) {
	if p == nil || p.purchaseOutcome == nil {
		return
	}
	p.purchaseOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddCreditsGranted counts credits granted by completed top-ups.
func (p *PipelineMetrics) AddCreditsGranted(credits int64) {
	if p == nil || p.creditsGranted == nil || credits <= 0 {
		return
	}
	p.creditsGranted.Add(float64(credits))
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
