package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventcal/internal/tracker"
)

// Metrics holds the Prometheus collectors for one server. Each server gets
// its own registry so tests can build many side by side.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	saves           *prometheus.CounterVec
}

func NewMetrics(tr *tracker.Tracker) *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventcal_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventcal_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	saves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventcal_saves_total",
		Help: "Database saves by trigger and result",
	}, []string{"trigger", "result"})

	events := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "eventcal_events",
		Help: "Number of visible events",
	}, func() float64 {
		return float64(tr.Count())
	})

	dirty := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "eventcal_unsaved_changes",
		Help: "1 when there are changes not yet written to disk",
	}, func() float64 {
		if tr.Dirty() {
			return 1
		}
		return 0
	})

	registry.MustRegister(
		requestDuration, requestTotal, saves, events, dirty,
		collectors.NewGoCollector(),
	)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		saves:           saves,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSave counts a save attempt.
func (m *Metrics) ObserveSave(trigger string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.saves.WithLabelValues(trigger, result).Inc()
}

// Middleware captures request metrics. Paths are the route templates so
// ids do not explode label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// InstrumentedSaver wraps the tracker's conditional save so scheduled saves
// are counted alongside API saves.
type InstrumentedSaver struct {
	tracker *tracker.Tracker
	metrics *Metrics
	trigger string
}

func (s InstrumentedSaver) SaveIfDirty(path string) (bool, error) {
	saved, err := s.tracker.SaveIfDirty(path)
	if saved || err != nil {
		s.metrics.ObserveSave(s.trigger, err)
	}
	return saved, err
}

// Saver returns a SaveIfDirty implementation that reports to this server's
// metrics under trigger.
func (s *Server) Saver(trigger string) InstrumentedSaver {
	return InstrumentedSaver{tracker: s.tracker, metrics: s.metrics, trigger: trigger}
}
