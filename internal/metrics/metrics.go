package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the reminder counters on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	messagesFetched prometheus.Counter
	messagesSkipped *prometheus.CounterVec
	recordsParsed   prometheus.Counter
	recordsSelected prometheus.Counter
	events          *prometheus.CounterVec
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	lastSuccess     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.messagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "outage",
		Name:      "messages_fetched_total",
		Help:      "Channel messages fetched",
	})
	m.messagesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outage",
		Name:      "messages_skipped_total",
		Help:      "Messages that produced no records, by reason",
	}, []string{"reason"})
	m.recordsParsed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "outage",
		Name:      "records_parsed_total",
		Help:      "Outage records extracted from messages",
	})
	m.recordsSelected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "outage",
		Name:      "records_selected_total",
		Help:      "Records left after pruning and group filtering",
	})
	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outage",
		Name:      "calendar_events_total",
		Help:      "Calendar events by action",
	}, []string{"action"})
	m.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outage",
		Name:      "sync_runs_total",
		Help:      "Pipeline runs by status",
	}, []string{"status"})
	m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "outage",
		Name:      "sync_duration_seconds",
		Help:      "Time spent in one pipeline run",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})
	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "outage",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run",
	})
	m.registry.MustRegister(
		m.messagesFetched, m.messagesSkipped, m.recordsParsed, m.recordsSelected,
		m.events, m.runs, m.runDuration, m.lastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) MessagesFetched(n int) {
	if m == nil {
		return
	}
	m.messagesFetched.Add(float64(n))
}

func (m *Metrics) MessageSkipped(reason string) {
	if m == nil {
		return
	}
	m.messagesSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Records(parsed, selected int) {
	if m == nil {
		return
	}
	m.recordsParsed.Add(float64(parsed))
	m.recordsSelected.Add(float64(selected))
}

// Events adds n to the counter for action (created, skipped, deleted).
func (m *Metrics) Events(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.events.WithLabelValues(action).Add(float64(n))
}

func (m *Metrics) Run(started time.Time, err error) {
	if m == nil {
		return
	}
	m.runDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		m.runs.WithLabelValues("error").Inc()
		return
	}
	m.runs.WithLabelValues("ok").Inc()
	m.lastSuccess.SetToCurrentTime()
}
