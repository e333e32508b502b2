// Package metrics exposes Prometheus collectors for the HTTP layer and the
// order engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "trgovina"

// Order operations.
const (
	OpCreate = "create"
	OpModify = "modify"
	OpDelete = "delete"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_orders_total",
			Help: "Committed order operations",
		},
		[]string{"op"},
	)

	OrderRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_order_rejections_total",
			Help: "Order requests rejected before commit, by reason",
		},
		[]string{"reason"},
	)

	ReservedUnitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_reserved_units_total",
			Help: "Units of stock reserved by committed orders",
		},
	)

	ReleasedUnitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_released_units_total",
			Help: "Units of stock returned by modified or deleted orders",
		},
	)
)

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and durations. Requests are labeled with
// the matched route pattern to keep label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
