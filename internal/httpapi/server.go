package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/johnrirwin/rightswatch/internal/aggregator"
	"github.com/johnrirwin/rightswatch/internal/health"
	"github.com/johnrirwin/rightswatch/internal/logging"
	"github.com/johnrirwin/rightswatch/internal/metrics"
	"github.com/johnrirwin/rightswatch/internal/models"
)

type Server struct {
	agg     *aggregator.Aggregator
	checker *health.Checker
	metrics *metrics.Metrics
	logger  *logging.Logger

	mu     sync.Mutex
	server *http.Server
}

func New(agg *aggregator.Aggregator, checker *health.Checker, m *metrics.Metrics, logger *logging.Logger) *Server {
	return &Server{
		agg:     agg,
		checker: checker,
		metrics: m,
		logger:  logger,
	}
}

// feedsResponse is the aggregate report with summary counts alongside.
type feedsResponse struct {
	models.AggregateReport
	Summary models.ReportStats `json:"stats"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Feed routes
	mux.HandleFunc("/api/feeds", s.corsMiddleware(s.handleGetFeeds))
	mux.HandleFunc("/api/sources", s.corsMiddleware(s.handleGetSources))
	mux.HandleFunc("/api/sources/", s.corsMiddleware(s.handleSourceItems))
	mux.HandleFunc("/api/health/feeds", s.corsMiddleware(s.handleFeedHealth))

	// Health check
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())

	return mux
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // above the aggregate deadline
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleGetFeeds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := s.agg.AggregateFeeds(r.Context())

	status := http.StatusOK
	if report.Status == models.StatusError {
		status = http.StatusInternalServerError
	}

	s.writeJSON(w, status, feedsResponse{
		AggregateReport: report,
		Summary:         report.Stats(),
	})
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sources := s.agg.GetSources()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sources": sources,
		"count":   len(sources),
	})
}

// handleSourceItems serves /api/sources/{id}/items.
func (s *Server) handleSourceItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sources/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "items" {
		s.writeError(w, http.StatusNotFound, "not_found", "route not found")
		return
	}

	items, ok := s.agg.SourceItems(r.Context(), parts[0])
	if !ok {
		s.writeError(w, http.StatusNotFound, "not_found", "source not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"source": parts[0],
		"items":  items,
		"count":  len(items),
	})
}

func (s *Server) handleFeedHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// ?cached=true serves the last saved records instead of checking again.
	cached, _ := strconv.ParseBool(r.URL.Query().Get("cached"))

	var results []models.FeedHealth
	if cached {
		results = s.checker.Latest(r.Context(), s.agg.GetSources())
	} else {
		results = s.checker.CheckAll(r.Context(), s.agg.GetSources())
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": health.Summarize(results),
		"feeds":  results,
		"count":  len(results),
		"cached": cached,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", logging.WithField("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
