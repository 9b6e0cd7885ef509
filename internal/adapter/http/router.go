package http

import (
	"fmt"
	"net/http"
	"time"

	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	handler        *Handler
	log            *logger.Logger
	metrics        *metrics.Metrics
	metricsHandler http.Handler
}

func NewRouter(handler *Handler, log *logger.Logger, metrics *metrics.Metrics) *Router {
	return &Router{
		handler:        handler,
		log:            log,
		metrics:        metrics,
		metricsHandler: promhttp.Handler(),
	}
}

func (r *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		crw := &customResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(crw, req)

		path := routeTemplate(req)
		if path != "/metrics" && r.metrics != nil {
			r.metrics.HTTPRequestDuration.WithLabelValues(path, req.Method).Observe(time.Since(start).Seconds())
			r.metrics.HTTPRequestsTotal.WithLabelValues(path, req.Method, fmt.Sprintf("%dxx", crw.statusCode/100)).Inc()
		}

		r.log.Info("HTTP request",
			"request_id", GetRequestID(req.Context()),
			"method", req.Method,
			"path", req.URL.Path,
			"query", req.URL.RawQuery,
			"status", crw.statusCode,
			"duration", time.Since(start),
			"remote_addr", req.RemoteAddr,
			"user_agent", req.UserAgent(),
		)
	})
}

// routeTemplate keeps metric labels bounded: /api/v1/history/{base}, not one label per currency.
func routeTemplate(req *http.Request) string {
	if route := mux.CurrentRoute(req); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type customResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (crw *customResponseWriter) WriteHeader(code int) {
	crw.statusCode = code
	crw.ResponseWriter.WriteHeader(code)
}

func (r *Router) SetupRoutes() http.Handler {
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware, r.loggingMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/convert", r.handler.ConvertHandler).Methods(http.MethodGet)
	api.HandleFunc("/convert-async", r.handler.ConvertAsyncHandler).Methods(http.MethodGet)
	api.HandleFunc("/history/pairs", r.handler.PairsHandler).Methods(http.MethodGet)
	api.HandleFunc("/history/currencies", r.handler.BaseCurrenciesHandler).Methods(http.MethodGet)
	api.HandleFunc("/history/{base:[A-Za-z]{3}}", r.handler.HistoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/history", r.handler.ClearHistoryHandler).Methods(http.MethodDelete)
	api.HandleFunc("/rates/latest", r.handler.LatestRateHandler).Methods(http.MethodGet)
	api.HandleFunc("/rates/cache", r.handler.ClearRateCacheHandler).Methods(http.MethodDelete)
	api.HandleFunc("/health", r.handler.HealthHandler).Methods(http.MethodGet)

	router.HandleFunc("/health", r.handler.HealthHandler).Methods(http.MethodGet)
	router.Handle("/metrics", r.metricsHandler)

	return router
}
