package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/johnrirwin/rightswatch/internal/models"
)

const namespace = "rightswatch"

// Fetch outcomes recorded per feed.
const (
	OutcomeOK       = "ok"
	OutcomeSoftFail = "unavailable"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
)

// Metrics holds the Prometheus collectors for the feed pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	feedFetches         *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
	reportItems         *prometheus.GaugeVec
	reports             *prometheus.CounterVec
	healthChecks        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Feed fetch attempts by feed and outcome.",
		}, []string{"feed", "outcome"}),
		aggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Wall time of a full aggregation run.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 15, 20},
		}),
		reportItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_items",
			Help:      "Items per bucket in the most recent report.",
		}, []string{"bucket"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Aggregation runs by report status.",
		}, []string{"status"}),
		healthChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_checks_total",
			Help:      "Feed health checks by feed and status.",
		}, []string{"feed", "status"}),
	}

	m.registry.MustRegister(
		m.feedFetches,
		m.aggregationDuration,
		m.reportItems,
		m.reports,
		m.healthChecks,
		prometheus.NewGoCollector(),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveFetch(feedID, outcome string) {
	if m == nil {
		return
	}
	m.feedFetches.WithLabelValues(feedID, outcome).Inc()
}

func (m *Metrics) ObserveReport(report models.AggregateReport, took time.Duration) {
	if m == nil {
		return
	}
	m.aggregationDuration.Observe(took.Seconds())
	m.reports.WithLabelValues(string(report.Status)).Inc()
	m.reportItems.WithLabelValues("news").Set(float64(report.FeedsLoaded.News))
	m.reportItems.WithLabelValues("threats").Set(float64(report.FeedsLoaded.Threats))
	m.reportItems.WithLabelValues("campaigns").Set(float64(report.FeedsLoaded.Campaigns))
}

func (m *Metrics) ObserveHealth(h models.FeedHealth) {
	if m == nil {
		return
	}
	m.healthChecks.WithLabelValues(h.FeedID, string(h.Status)).Inc()
}
