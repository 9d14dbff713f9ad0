package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sifan077/spectra/internal/app/model"
)

const namespace = "spectra"

// Metrics holds the application collectors.
type Metrics struct {
	requests     *prometheus.HistogramVec
	accesses     *prometheus.CounterVec
	sweepFlagged prometheus.Counter
	sweepDropped prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		accesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_accesses_total",
			Help:      "Recorded item accesses.",
		}, []string{"item_type", "operation", "success"}),
		sweepFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_flagged_items_total",
			Help:      "Items marked unavailable by the periodic sweep.",
		}),
		sweepDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_dropped_items_total",
			Help:      "Items deleted by the periodic sweep.",
		}),
	}
	reg.MustRegister(m.requests, m.accesses, m.sweepFlagged, m.sweepDropped)
	return m
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveAccess(t model.ItemType, op model.Operation, success bool) {
	m.accesses.WithLabelValues(string(t), string(op), strconv.FormatBool(success)).Inc()
}

func (m *Metrics) ObserveSweep(flagged int64, dropped int) {
	m.sweepFlagged.Add(float64(flagged))
	m.sweepDropped.Add(float64(dropped))
}
