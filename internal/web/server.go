// Package web provides the Plan-It HTTP server and handlers.
package web

import (
	"errors"
	"net/http"

	"github.com/planit/planit/internal/chatbot"
	"github.com/planit/planit/internal/log"
	"github.com/planit/planit/internal/points"
	"github.com/planit/planit/internal/task"
	"github.com/planit/planit/internal/thread"
	"github.com/planit/planit/internal/web/handlers"
)

// Server is the Plan-It HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// ServerConfig contains configuration for creating the server.
type ServerConfig struct {
	Logger  log.Logger
	DB      handlers.Pinger // Required: readiness probe target
	Tasks   *task.Store     // Required
	Threads *thread.Store   // Required
	Points  *points.Store   // Required
	Bot     *chatbot.Chatbot
}

// NewServer creates the server with all routes configured. Health
// probes are served without authentication; every /api/ route requires
// the caller identity header.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.DB == nil {
		return nil, errors.New("DB is required")
	}
	if cfg.Tasks == nil {
		return nil, errors.New("Tasks store is required")
	}
	if cfg.Threads == nil {
		return nil, errors.New("Threads store is required")
	}
	if cfg.Points == nil {
		return nil, errors.New("Points store is required")
	}
	if cfg.Bot == nil {
		return nil, errors.New("Bot is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	api := http.NewServeMux()
	handlers.NewTasks(handlers.TasksConfig{
		Store:  cfg.Tasks,
		Points: cfg.Points,
		Logger: logger,
	}).RegisterRoutes(api)
	handlers.NewAnalytics(cfg.Tasks, logger).RegisterRoutes(api)
	handlers.NewPoints(cfg.Points, logger).RegisterRoutes(api)
	handlers.NewThreads(cfg.Threads, logger).RegisterRoutes(api)
	handlers.NewChatbot(cfg.Bot, cfg.Threads, logger).RegisterRoutes(api)

	mux := http.NewServeMux()
	handlers.NewHealth(cfg.DB).RegisterRoutes(mux)
	mux.Handle("/api/", RequireUser(logger)(api))

	return &Server{mux: mux, logger: logger}, nil
}

// ServeHTTP implements http.Handler with the middleware stack.
// Order matters: Recovery catches panics from every layer below,
// Logging tracks the request once a status is known.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var handler http.Handler = s.mux
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler.ServeHTTP(w, r)
}

// Handler returns the server as an http.Handler for mounting.
func (s *Server) Handler() http.Handler {
	return s
}
