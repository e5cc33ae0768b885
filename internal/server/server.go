package server

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lifepulse/internal/infrastructure/logging"
	"lifepulse/internal/repository"
	"lifepulse/internal/services"
	"lifepulse/internal/types"
)

// HealthChecker is the slice of the database service the status endpoints
// need
type HealthChecker interface {
	Health(ctx context.Context) error
}

// UsageFetcher reads a day's hourly records back from the dashboard API
type UsageFetcher interface {
	FetchHourlyUsage(ctx context.Context, date string) ([]types.HourlyUsageRecord, error)
}

// Server exposes the agent's local status API: health, sync history and
// stats, the daily summary, and a manual sync trigger. It binds to loopback;
// there is no auth on this surface.
type Server struct {
	history     repository.SyncHistoryRepository
	marker      repository.SyncMarkerStore
	health      HealthChecker
	fetcher     UsageFetcher
	triggerSync func()
	logger      logging.Logger

	httpServer *http.Server
}

// New creates the status server. triggerSync is invoked by POST /api/sync;
// fetcher may be nil, in which case the daily-summary endpoint reports 503.
func New(addr string, history repository.SyncHistoryRepository, marker repository.SyncMarkerStore,
	health HealthChecker, fetcher UsageFetcher, triggerSync func(), logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	s := &Server{
		history:     history,
		marker:      marker,
		health:      health,
		fetcher:     fetcher,
		triggerSync: triggerSync,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/sync-history", s.handleSyncHistory)
		r.Get("/sync-stats", s.handleSyncStats)
		r.Get("/daily-summary", s.handleDailySummary)
		r.Post("/sync", s.handleManualSync)
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route tree, used directly by tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called. http.ErrServerClosed is swallowed;
// any other listen error is returned.
func (s *Server) Start() error {
	s.logger.Info("Status server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Health(r.Context()); err != nil {
			s.logger.Error("Health check failed", "error", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "down",
				"error":  err.Error(),
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "up"})
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list sync history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read sync history")
		return
	}
	if records == nil {
		records = []types.SyncRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.history.Stats(r.Context())
	if err != nil {
		s.logger.Error("Failed to read sync stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read sync stats")
		return
	}

	response := map[string]interface{}{
		"success_count": stats.SuccessCount,
		"failure_count": stats.FailureCount,
	}
	if s.marker != nil {
		if date, timestamp, err := s.marker.LastSync(r.Context()); err == nil && date != "" {
			response["last_sync_date"] = date
			response["last_sync_time"] = timestamp
		}
	}
	s.writeJSON(w, http.StatusOK, response)
}

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil {
		s.writeError(w, http.StatusServiceUnavailable, "remote fetch not configured")
		return
	}

	date := r.URL.Query().Get("date")
	if !dateFormat.MatchString(date) {
		s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	records, err := s.fetcher.FetchHourlyUsage(r.Context(), date)
	if err != nil {
		s.logger.Error("Failed to fetch hourly usage", "date", date, "error", err)
		s.writeError(w, http.StatusBadGateway, "failed to fetch hourly usage")
		return
	}

	summary := services.SummarizeDay(records)
	if summary == nil {
		s.writeError(w, http.StatusNotFound, "no usage recorded for date")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleManualSync(w http.ResponseWriter, r *http.Request) {
	if s.triggerSync == nil {
		s.writeError(w, http.StatusServiceUnavailable, "sync trigger not configured")
		return
	}
	s.triggerSync()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync triggered"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]string{"error": message})
}

