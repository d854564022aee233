package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status code.
	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration records HTTP request latency in seconds.
	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks the current number of requests being processed.
	HTTPRequestsInFlight = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// instrumentedWriter tracks the status code a handler responded with.
type instrumentedWriter struct {
	http.ResponseWriter
	status int
}

func (iw *instrumentedWriter) WriteHeader(code int) {
	if iw.status == 0 {
		iw.status = code
	}
	iw.ResponseWriter.WriteHeader(code)
}

func (iw *instrumentedWriter) Write(b []byte) (int, error) {
	if iw.status == 0 {
		iw.status = http.StatusOK
	}
	return iw.ResponseWriter.Write(b)
}

func (iw *instrumentedWriter) statusCode() int {
	if iw.status == 0 {
		return http.StatusOK
	}
	return iw.status
}

// HTTPMiddleware records request count, latency, and in-flight gauge.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPRequestsInFlight.Inc()
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path))

		iw := &instrumentedWriter{ResponseWriter: w}
		next.ServeHTTP(iw, r)

		timer.ObserveDuration()
		HTTPRequestsInFlight.Dec()
		HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(iw.statusCode())).Inc()
	})
}
