package prometheus

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sifan077/spectra/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	scrapeTimeout     = 8 * time.Second
	maxScrapes        = 4
	defaultPort       = 9090
	metricsPath       = "/metrics"
)

// NewServer exposes reg on /metrics on its own listener. Scrapes of the
// endpoint itself are counted on reg as promhttp_metric_handler_*.
func NewServer(cfg config.PrometheusConfig, reg *prometheus.Registry) *http.Server {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry:            reg,
		ErrorHandling:       promhttp.ContinueOnError,
		EnableOpenMetrics:   true,
		MaxRequestsInFlight: maxScrapes,
		Timeout:             scrapeTimeout,
	})

	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.InstrumentMetricHandler(reg, handler))

	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
}
