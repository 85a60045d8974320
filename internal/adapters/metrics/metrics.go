package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"noticeboard/internal/domain/notice"
)

// Metrics holds the board's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	added          *prometheus.CounterVec
	rejected       prometheus.Counter
	removed        prometheus.Counter
	pinToggles     *prometheus.CounterVec
	sessionsActive prometheus.Gauge
	requestSeconds *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.added = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "noticeboard",
		Name:      "notices_added_total",
		Help:      "Notices added, by category",
	}, []string{"category"})
	m.rejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "noticeboard",
		Name:      "notices_rejected_total",
		Help:      "Add attempts rejected for an invalid draft",
	})
	m.removed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "noticeboard",
		Name:      "notices_removed_total",
		Help:      "Notices removed",
	})
	m.pinToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "noticeboard",
		Name:      "pin_toggles_total",
		Help:      "Pin toggles, by resulting state",
	}, []string{"state"})
	m.sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "noticeboard",
		Name:      "sessions_active",
		Help:      "Boards currently held in memory",
	})
	m.requestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "noticeboard",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	m.registry.MustRegister(
		m.added, m.rejected, m.removed, m.pinToggles,
		m.sessionsActive, m.requestSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NoticeAdded counts a successful add.
func (m *Metrics) NoticeAdded(c notice.Category) {
	m.added.WithLabelValues(string(c)).Inc()
}

// NoticeRejected counts a rejected add.
func (m *Metrics) NoticeRejected() {
	m.rejected.Inc()
}

// NoticeRemoved counts a removal.
func (m *Metrics) NoticeRemoved() {
	m.removed.Inc()
}

// PinToggled counts a pin toggle by its resulting state.
func (m *Metrics) PinToggled(pinned bool) {
	state := "unpinned"
	if pinned {
		state = "pinned"
	}
	m.pinToggles.WithLabelValues(state).Inc()
}

// SessionOpened and SessionClosed track live boards.
func (m *Metrics) SessionOpened() { m.sessionsActive.Inc() }
func (m *Metrics) SessionClosed() { m.sessionsActive.Dec() }

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requestSeconds.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
