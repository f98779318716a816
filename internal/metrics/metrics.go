package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors for dispatch activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	DispatchTotal        *prometheus.CounterVec
	SweepDurationSeconds *prometheus.HistogramVec
	SweepSkippedTotal    *prometheus.CounterVec
	EmailsSentTotal      prometheus.Counter
	EmailsFailedTotal    prometheus.Counter
	ProviderPostsTotal   *prometheus.CounterVec
	RetryRejectedTotal   *prometheus.CounterVec
	ReconciledTotal      *prometheus.CounterVec

	registry *prometheus.Registry
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaignflow_dispatch_total",
				Help: "Dispatched items by kind and terminal status",
			},
			[]string{"kind", "status"},
		),
		SweepDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campaignflow_sweep_duration_seconds",
				Help:    "Duration of due-item sweeps",
				Buckets: []float64{.05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		SweepSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaignflow_sweep_skipped_total",
				Help: "Sweeps skipped because another sweep held the lock",
			},
			[]string{"kind"},
		),
		EmailsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "campaignflow_emails_sent_total",
				Help: "Emails accepted by the transport",
			},
		),
		EmailsFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "campaignflow_emails_failed_total",
				Help: "Emails the transport rejected or never attempted",
			},
		),
		ProviderPostsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaignflow_provider_posts_total",
				Help: "Social posts by platform and result",
			},
			[]string{"platform", "result"},
		),
		RetryRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaignflow_retry_rejected_total",
				Help: "Retry requests refused by the retry gate",
			},
			[]string{"kind", "reason"},
		),
		ReconciledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaignflow_reconciled_total",
				Help: "In-flight items failed after going stale",
			},
			[]string{"kind"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.DispatchTotal,
		m.SweepDurationSeconds,
		m.SweepSkippedTotal,
		m.EmailsSentTotal,
		m.EmailsFailedTotal,
		m.ProviderPostsTotal,
		m.RetryRejectedTotal,
		m.ReconciledTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordDispatch(kind, status string) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) ObserveSweep(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.SweepDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) RecordSweepSkipped(kind string) {
	if m == nil {
		return
	}
	m.SweepSkippedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordEmails(sent, failed int) {
	if m == nil {
		return
	}
	m.EmailsSentTotal.Add(float64(sent))
	m.EmailsFailedTotal.Add(float64(failed))
}

func (m *Metrics) RecordProviderPost(platform string, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.ProviderPostsTotal.WithLabelValues(platform, result).Inc()
}

func (m *Metrics) RecordRetryRejected(kind, reason string) {
	if m == nil {
		return
	}
	m.RetryRejectedTotal.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) RecordReconciled(kind string, n int) {
	if m == nil {
		return
	}
	m.ReconciledTotal.WithLabelValues(kind).Add(float64(n))
}
