package handlers

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"emberAPI/internal/docstore"
	"emberAPI/middleware"
	"emberAPI/services"
)

type RouterParams struct {
	Store     docstore.Store
	Logs      *services.DailyLogService
	Settings  *services.SettingsService
	Delays    *services.DelayService
	Analytics *services.AnalyticsService

	Logger zerolog.Logger
	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter *middleware.RateLimiter
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer    prometheus.Gatherer
	MetricsUser string
	MetricsPass string
	PprofSecret string
}

func NewRouter(p RouterParams) *mux.Router {
	healthHandler := NewHealthHandler(p.Store)
	logHandler := NewLogHandler(p.Logs)
	settingsHandler := NewSettingsHandler(p.Settings)
	delayHandler := NewDelayHandler(p.Delays)
	analyticsHandler := NewAnalyticsHandler(p.Analytics)

	r := mux.NewRouter()
	setJSONErrorHandlers(r)

	// Recoverer runs innermost: a recovered panic is still logged and counted.
	r.Use(middleware.RequestLogger(p.Logger))
	r.Use(middleware.MonitorMiddleware)
	if p.RateLimiter != nil {
		r.Use(p.RateLimiter.Middleware)
	}
	r.Use(middleware.Recoverer(p.Logger))

	if p.Gatherer != nil {
		metrics := promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})
		r.Handle("/metrics", middleware.BasicAuthMiddleware(p.MetricsUser, p.MetricsPass)(metrics)).Methods("GET")
	}

	profiler := r.PathPrefix("/debug/pprof").Subrouter()
	profiler.Use(middleware.PprofSecurityMiddleware(p.PprofSecret))
	profiler.HandleFunc("/cmdline", pprof.Cmdline)
	profiler.HandleFunc("/profile", pprof.Profile)
	profiler.HandleFunc("/symbol", pprof.Symbol)
	profiler.HandleFunc("/trace", pprof.Trace)
	profiler.PathPrefix("/").HandlerFunc(pprof.Index)

	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	setJSONErrorHandlers(api)

	api.HandleFunc("/", healthHandler.Root).Methods("GET")

	api.HandleFunc("/logs/today", logHandler.GetToday).Methods("GET")
	api.HandleFunc("/logs/increment", logHandler.Increment).Methods("POST")
	api.HandleFunc("/logs/decrement", logHandler.Decrement).Methods("POST")
	api.HandleFunc("/logs/history", logHandler.GetHistory).Methods("GET")
	api.HandleFunc("/logs/reset-today", logHandler.ResetToday).Methods("POST")

	api.HandleFunc("/settings", settingsHandler.GetSettings).Methods("GET")
	api.HandleFunc("/settings", settingsHandler.UpdateSettings).Methods("PUT")

	api.HandleFunc("/delays/start", delayHandler.StartDelay).Methods("POST")
	api.HandleFunc("/delays/{id}/complete", delayHandler.CompleteDelay).Methods("POST")
	api.HandleFunc("/delays/streak", delayHandler.GetStreak).Methods("GET")

	api.HandleFunc("/analytics/summary", analyticsHandler.GetSummary).Methods("GET")

	api.HandleFunc("/seed", logHandler.Seed).Methods("POST")

	return r
}

// setJSONErrorHandlers answers unmatched paths and methods with JSON errors.
// Subrouters need their own handlers or a method mismatch below them falls
// through to a 404.
func setJSONErrorHandlers(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}
