package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the tracking pipeline's Prometheus instruments behind a
// private registry.
type Collector struct {
	reg *prometheus.Registry

	LocationUpdates    prometheus.Counter
	LocationUpdateErrs prometheus.Counter
	StatusUpdates      prometheus.Counter
	StatusUpdateErrs   prometheus.Counter
	AlertsEmitted      *prometheus.CounterVec // type label: delay|breakdown|maintenance

	RequestDuration *prometheus.HistogramVec // route + status labels
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		LocationUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbus_location_updates_total",
			Help: "Total driver location updates applied.",
		}),
		LocationUpdateErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbus_location_update_errors_total",
			Help: "Total driver location updates rejected or failed.",
		}),
		StatusUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbus_status_updates_total",
			Help: "Total bus status updates applied.",
		}),
		StatusUpdateErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbus_status_update_errors_total",
			Help: "Total bus status updates rejected or failed.",
		}),
		AlertsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartbus_alerts_emitted_total",
			Help: "Total alerts emitted by the tracking pipeline.",
		}, []string{"type"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartbus_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		c.LocationUpdates, c.LocationUpdateErrs, c.StatusUpdates,
		c.StatusUpdateErrs, c.AlertsEmitted, c.RequestDuration,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Middleware records request latency per chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		c.RequestDuration.WithLabelValues(route, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
