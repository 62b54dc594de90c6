package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasknote_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"route", "status"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasknote_errors_total",
		Help: "HTTP responses with a 5xx status by route pattern.",
	}, []string{"route"})

	// OrphanImages is set by the sweeper: registry entries no task
	// references anymore.
	OrphanImages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tasknote_orphan_images",
		Help: "Image registry entries not referenced by any task.",
	})
)

// Middleware counts requests per chi route pattern and status.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		if ww.Status() >= http.StatusInternalServerError {
			errorsTotal.WithLabelValues(route).Inc()
		}
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
