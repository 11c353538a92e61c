package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_store_latency_seconds",
		Help:    "Histogram of document store operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "route"})

	authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_auth_failures_total",
		Help: "Rejected bearer tokens by internal reason.",
	}, []string{"reason"})
)

// Middleware records request metrics. The route label is the chi pattern
// so ids in the path do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStore returns a func that records the latency of one store call.
func ObserveStore(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() {
		storeLatency.WithLabelValues(operation, routeFromContext(ctx)).Observe(time.Since(start).Seconds())
	}
}

func AuthFailure(reason string) {
	authFailuresTotal.WithLabelValues(reason).Inc()
}

// chi fills the shared route context while routing, so reading it after the
// handler ran yields the matched pattern.
func routeFromContext(ctx context.Context) string {
	if rctx := chi.RouteContext(ctx); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

func routePattern(r *http.Request) string {
	if route := routeFromContext(r.Context()); route != "unknown" {
		return route
	}
	return "unmatched"
}
