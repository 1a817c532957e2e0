package server

import (
	"log/slog"
	"net/http"

	"retail-insights/internal/handlers"
	"retail-insights/internal/services"
)

type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
	pageHandlers *handlers.PageHandlers
	metrics      http.Handler
}

type Options struct {
	Store          *services.Store
	Analytics      *services.Analytics
	MaxUploadBytes int64
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewServer(opts Options, logger *slog.Logger) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		logger:       logger,
		apiHandlers:  handlers.NewAPIHandlers(opts.Store, opts.Analytics, opts.MaxUploadBytes, logger),
		sseHandlers:  handlers.NewSSEHandlers(opts.Store, opts.Analytics, logger),
		pageHandlers: handlers.NewPageHandlers(opts.Store, opts.Analytics, opts.MaxUploadBytes, logger),
		metrics:      opts.Metrics,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Pages
	s.mux.HandleFunc("GET /", s.pageHandlers.HandleDashboard)
	s.mux.HandleFunc("POST /reports", s.pageHandlers.HandleUpload)
	s.mux.HandleFunc("GET /reports/{id}", s.pageHandlers.HandleReport)

	// Operations
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}

	// REST API endpoints
	s.mux.HandleFunc("POST /api/reports", s.apiHandlers.HandleUpload)
	s.mux.HandleFunc("GET /api/reports", s.apiHandlers.HandleList)
	s.mux.HandleFunc("GET /api/reports/{id}", s.apiHandlers.HandleGet)
	s.mux.HandleFunc("DELETE /api/reports/{id}", s.apiHandlers.HandleDelete)
	s.mux.HandleFunc("GET /api/reports/{id}/metrics", s.apiHandlers.HandleMetrics)
	s.mux.HandleFunc("GET /api/reports/{id}/monthly", s.apiHandlers.HandleMonthly)
	s.mux.HandleFunc("GET /api/reports/{id}/forecast", s.apiHandlers.HandleForecast)
	s.mux.HandleFunc("GET /api/reports/{id}/export", s.apiHandlers.HandleExport)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/reports/{id}", s.sseHandlers.HandleReport)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
