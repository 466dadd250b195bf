package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/skladops/sklad/internal/storage"
)

// Server exposes the warehouse API over HTTP. Handlers are thin wrappers
// around the repository; all domain rules (history logging, completion
// timestamps, archive sweep) live here.
type Server struct {
	log       *slog.Logger
	repo      storage.Repository
	timeout   time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewServer(log *slog.Logger, repo storage.Repository, cfg Config) *Server {
	return &Server{
		log:       log,
		repo:      repo,
		timeout:   cfg.HTTP.Timeout,
		retention: cfg.ArchiveRetention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	// Literal routes before the {id} wildcard so stats and the bulk
	// endpoints never collide with a task id.
	mux.HandleFunc("GET /api/tasks", s.withLog(s.handleListTasks))
	mux.HandleFunc("POST /api/tasks", s.withLog(s.handleCreateTask))
	mux.HandleFunc("GET /api/tasks/stats", s.withLog(s.handleTaskStats))
	mux.HandleFunc("PUT /api/tasks/bulk-update", s.withLog(s.handleBulkUpdate))
	mux.HandleFunc("DELETE /api/tasks/bulk-delete", s.withLog(s.handleBulkDelete))
	mux.HandleFunc("POST /api/tasks/archive", s.withLog(s.handleArchiveSweep))
	mux.HandleFunc("POST /api/tasks/import", s.withLog(s.handleImportTasks))
	mux.HandleFunc("GET /api/tasks/{id}", s.withLog(s.handleGetTask))
	mux.HandleFunc("PUT /api/tasks/{id}", s.withLog(s.handleUpdateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.withLog(s.handleDeleteTask))
	mux.HandleFunc("GET /api/tasks/{id}/history", s.withLog(s.handleTaskHistory))
	mux.HandleFunc("POST /api/tasks/{id}/revert/{historyID}", s.withLog(s.handleRevert))

	mux.HandleFunc("GET /api/receptions", s.withLog(s.handleListReceptions))
	mux.HandleFunc("POST /api/receptions", s.withLog(s.handleCreateReception))

	mux.HandleFunc("GET /api/filters", s.withLog(s.handleListFilters))
	mux.HandleFunc("POST /api/filters", s.withLog(s.handleCreateFilter))
	mux.HandleFunc("DELETE /api/filters/{id}", s.withLog(s.handleDeleteFilter))
}

func (s *Server) withLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		start := time.Now()
		next(w, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID,
			"duration", time.Since(start),
		)
	}
}
