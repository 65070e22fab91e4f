package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registration, reconciliation, notification and worker
// counters. Each instance registers on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	RegistrationsSubmitted *prometheus.CounterVec
	ValidationFailures     *prometheus.CounterVec
	SourceFailures         *prometheus.CounterVec
	NotificationEmails     *prometheus.CounterVec
	JobsProcessed          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
}

// New creates a Metrics instance with all metrics registered, plus the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RegistrationsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrations_submitted_total",
			Help: "Registrations accepted, by registration type",
		}, []string{"type"}),
		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_validation_failures_total",
			Help: "Rejected submissions, by validation code",
		}, []string{"code"}),
		SourceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_source_failures_total",
			Help: "Registration sources or collections skipped while reconciling",
		}, []string{"source"}),
		NotificationEmails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_emails_total",
			Help: "Notification emails attempted, by type and outcome",
		}, []string{"type", "status"}),
		JobsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_jobs_processed_total",
			Help: "Worker jobs handled, by job type and outcome",
		}, []string{"type", "outcome"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}
}

// RegistrationSubmitted counts an accepted registration. Add-on-only
// registrations are labelled "none".
func (m *Metrics) RegistrationSubmitted(registrationType string) {
	if registrationType == "" {
		registrationType = "none"
	}
	m.RegistrationsSubmitted.WithLabelValues(registrationType).Inc()
}

// ValidationFailed counts a rejected submission.
func (m *Metrics) ValidationFailed(code string) {
	m.ValidationFailures.WithLabelValues(code).Inc()
}

// SourceFailed counts a skipped reconciler source.
func (m *Metrics) SourceFailed(source string) {
	m.SourceFailures.WithLabelValues(source).Inc()
}

// EmailSent records the outcome of one email.
func (m *Metrics) EmailSent(emailType, status string) {
	m.NotificationEmails.WithLabelValues(emailType, status).Inc()
}

// JobDone records a processed job. outcome is "ok", "retried" or "dead".
func (m *Metrics) JobDone(jobType, outcome string) {
	m.JobsProcessed.WithLabelValues(jobType, outcome).Inc()
}

// ObserveRequest records the duration of one HTTP request.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRequest(method, route, status string, start time.Time) {
	m.RequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
