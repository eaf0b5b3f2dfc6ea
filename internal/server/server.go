// Package server provides the HTTP server for the gaitgrip motion classification engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/gaitgrip/internal/engine"
	"github.com/ayusman/gaitgrip/internal/log"
	"github.com/ayusman/gaitgrip/internal/pose"
	"github.com/ayusman/gaitgrip/internal/server/api"
	"github.com/ayusman/gaitgrip/internal/store"
)

// ShutdownTimeout bounds how long ListenAndServe waits for open requests.
const ShutdownTimeout = 5 * time.Second

// StateProvider exposes the latest classifier snapshot. *engine.Engine implements it.
type StateProvider interface {
	Latest() engine.Snapshot
}

// Config holds the server configuration. Routes whose dependency is nil are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	State     StateProvider
	// Poses receives samples from the ingest endpoint.
	Poses *pose.StreamSource
	// Topology is checked against ingested hands. Nil means pose.DefaultTopology.
	Topology    pose.Topology
	Recorder    api.Recorder
	Plugins     api.PluginLister
	PluginStats api.StatsReporter
	// StateInterval is the websocket broadcast period. Zero means DefaultStateInterval.
	StateInterval time.Duration
}

// Server represents the HTTP server for the gaitgrip application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	state  *StateHandler
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

	if s.config.State != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
		s.state = NewStateHandler(s.config.State, s.config.StateInterval)
		s.mux.Handle("/api/state/ws", s.state)
	}

	if s.config.Poses != nil {
		s.mux.Handle("/api/pose", NewPoseHandler(s.config.Poses, s.config.Topology))
	}

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)

		hooks := api.NewHookHandler(s.config.Store)
		s.mux.Handle("/api/hooks", hooks)
		s.mux.Handle("/api/hooks/", hooks)
	}

	if s.config.Recorder != nil {
		s.mux.Handle("/api/recording", api.NewRecordingHandler(s.config.Recorder))
	}

	if s.config.Plugins != nil {
		s.mux.Handle("/api/plugins", api.NewPluginHandler(s.config.Plugins, s.config.PluginStats))
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

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.State != nil {
		response["ticks"] = s.config.State.Latest().Seq
	}
	if s.config.Poses != nil {
		response["pose_samples"] = s.config.Poses.Pushes()
	}

	writeJSON(w, response)
}

// handleState handles GET /api/state with the latest snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.config.State.Latest())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to encode response", "error", err)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown.
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("http server stopped")
	return nil
}

// Close stops the state broadcaster and disconnects its clients.
func (s *Server) Close() {
	if s.state != nil {
		s.state.Close()
	}
}
