// Package server provides the HTTP server for the mudra gesture controller.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration. Routes whose collaborator is nil
// are not registered.
type Config struct {
	StaticDir  string
	Controller api.Controller
	Store      *store.Store
	Camera     capture.Camera
	Events     *EventsHandler
}

// Server represents the HTTP server for the mudra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/api/commands", api.HandleCommands)

	if ctrl := s.config.Controller; ctrl != nil {
		s.mux.Handle("/api/status", api.NewStatusHandler(ctrl))
		s.mux.Handle("/api/samples", api.NewSamplesHandler(ctrl))
		s.mux.Handle("/api/voice", api.NewVoiceHandler(ctrl))
		s.mux.Handle("/api/detection", api.NewDetectionHandler(ctrl))

		sessions := api.NewSessionsHandler(ctrl)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Store != nil {
		actions := api.NewActionsHandler(s.config.Store)
		s.mux.Handle("/api/actions", actions)
		s.mux.Handle("/api/actions/", actions)
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth reports uptime and which collaborators are attached.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
		Components: map[string]bool{
			"controller": s.config.Controller != nil,
			"store":      s.config.Store != nil,
			"camera":     s.config.Camera != nil && s.config.Camera.IsOpen(),
			"events":     s.config.Events != nil,
		},
	}
	if s.config.Events != nil {
		resp.EventClients = s.config.Events.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

type healthResponse struct {
	Status       string          `json:"status"`
	Uptime       string          `json:"uptime"`
	Components   map[string]bool `json:"components"`
	EventClients int             `json:"event_clients"`
}

// HTTPServer returns an http.Server for addr serving s. The caller owns
// ListenAndServe and Shutdown.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
