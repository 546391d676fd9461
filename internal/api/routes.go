package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pgtask-dev/pgtask/internal/api/handlers"
	apiMiddleware "github.com/pgtask-dev/pgtask/internal/api/middleware"
	"github.com/pgtask-dev/pgtask/internal/api/websocket"
	"github.com/pgtask-dev/pgtask/internal/config"
	"github.com/pgtask-dev/pgtask/internal/events"
	"github.com/pgtask-dev/pgtask/internal/store"
)

// Server represents the admin HTTP server, serving task inspection,
// queue/parked statistics, and a WebSocket feed of task lifecycle
// events over a single Store.
type Server struct {
	router       *chi.Mux
	store        *store.Store
	config       *config.Config
	taskHandler  *handlers.TaskHandler
	adminHandler *handlers.AdminHandler
	wsHub        *websocket.Hub
	wsHandler    *websocket.Handler
	publisher    events.Publisher
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, st *store.Store, publisher events.Publisher) *Server {
	wsHub := websocket.NewHub(publisher)

	s := &Server{
		router:       chi.NewRouter(),
		store:        st,
		config:       cfg,
		taskHandler:  handlers.NewTaskHandler(st),
		adminHandler: handlers.NewAdminHandler(st),
		wsHub:        wsHub,
		wsHandler:    websocket.NewHandler(wsHub),
		publisher:    publisher,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(middleware.Logger)

	// Recoverer
	s.router.Use(middleware.Recoverer)

	// Heartbeat endpoint for load balancers
	s.router.Use(middleware.Heartbeat("/health"))
}

func (s *Server) setupRoutes() {
	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		if s.config.Server.RateLimitRPS > 0 {
			r.Use(apiMiddleware.ClientRateLimit(s.config.Server.RateLimitRPS))
		}

		// Task inspection — read-only, since enqueueing is a Go-level
		// call (pgtask.EnqueueNow/After/At), not a REST operation.
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/{taskID}", s.taskHandler.Get)
		})
	})

	// Admin routes
	s.router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		if s.config.Auth.Enabled {
			apiKeys := make(map[string]bool, len(s.config.Auth.APIKeys))
			for _, k := range s.config.Auth.APIKeys {
				apiKeys[k] = true
			}
			r.Use(apiMiddleware.Auth(&apiMiddleware.AuthConfig{
				Enabled:   true,
				JWTSecret: s.config.Auth.JWTSecret,
				APIKeys:   apiKeys,
			}))
		}

		r.Get("/health", s.adminHandler.HealthCheck)

		// Queue and parked-task management
		r.Get("/queues", s.adminHandler.GetQueues)
		r.Get("/parked", s.adminHandler.ListParked)
		r.Post("/parked/{taskID}/retry", s.adminHandler.RetryParked)
		r.Delete("/parked/{taskID}", s.adminHandler.PurgeParked)
	})

	// WebSocket endpoint
	s.router.Get("/ws", s.wsHandler.ServeWS)

	// Metrics endpoint
	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, promhttp.Handler())
	}
}

// Start starts the WebSocket hub
func (s *Server) Start(ctx context.Context) {
	go s.wsHub.Run(ctx)
}

// Stop stops the WebSocket hub
func (s *Server) Stop() {
	s.wsHub.Stop()
}

// Router returns the chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Publisher returns the event publisher
func (s *Server) Publisher() events.Publisher {
	return s.publisher
}
