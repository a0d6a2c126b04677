package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"insightminer/pkg/config"
	"insightminer/pkg/dedup"
	"insightminer/pkg/logger"
	"insightminer/pkg/session"
)

// Downloader is the pipeline surface the ingress exposes
type Downloader interface {
	DownloadAndQueue(ctx context.Context, sourceURL, overrideFolder string) (bool, string)
}

// SessionReporter reports session state for the status endpoint
type SessionReporter interface {
	Status() session.Status
}

// StatsReporter reports fingerprint store state for the status endpoint
type StatsReporter interface {
	Stats() dedup.Stats
}

// Server is the local HTTP ingress. It accepts download requests from
// trusted local clients (shortcuts, browser extensions) and exposes health,
// status, and metrics.
type Server struct {
	pipeline Downloader
	sessions SessionReporter
	stats    StatsReporter
	logger   logger.Logger
	http     *http.Server
}

// New builds the ingress server bound to the configured host and port
func New(cfg *config.ServerConfig, pipeline Downloader, sessions SessionReporter, stats StatsReporter, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{
		pipeline: pipeline,
		sessions: sessions,
		stats:    stats,
		logger:   log,
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	return s
}

// Routes assembles the chi router. Exposed separately so tests can drive the
// handler stack without binding a port.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/download", s.handleDownload)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// ListenAndServe blocks until the server exits
func (s *Server) ListenAndServe() error {
	s.logger.InfoWithFields("ingress listening", map[string]interface{}{
		"addr": s.http.Addr,
	})
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requestLogger tags every request with an ID and logs its outcome
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.InfoWithFields("request", map[string]interface{}{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse aggregates session and dedup state for operator surfaces
type statusResponse struct {
	Session session.Status `json:"session"`
	Dedup   dedup.Stats    `json:"dedup"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Session: s.sessions.Status(),
		Dedup:   s.stats.Stats(),
	})
}

// downloadRequest is the POST /download body
type downloadRequest struct {
	URL    string `json:"url"`
	Folder string `json:"folder,omitempty"`
}

// downloadResponse mirrors the pipeline's (bool, message) boundary
type downloadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, downloadResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, downloadResponse{
			Success: false,
			Message: "url is required",
		})
		return
	}

	ok, msg := s.pipeline.DownloadAndQueue(r.Context(), req.URL, req.Folder)

	status := http.StatusOK
	if !ok {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, downloadResponse{Success: ok, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
