package daemon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/timestone/timestone/internal/config"
	"github.com/timestone/timestone/internal/logger"
	"github.com/timestone/timestone/internal/store"
)

// Server is the timestone HTTP daemon: the session directory, event query
// source, folder scanner, and live event stream consumed by playback
// frontends.
type Server struct {
	httpServer  *http.Server
	handlers    *Handlers
	broadcaster *SSEBroadcaster
	lifecycle   *Lifecycle
	port        int
}

// NewServer wires the handlers, live event broadcaster, and lifecycle
// manager onto a localhost-only HTTP server.
func NewServer(cfg *config.Config, st store.EventStore, version string) *Server {
	handlers := NewHandlers(st, cfg, version)
	broadcaster := NewSSEBroadcaster(
		st,
		time.Duration(cfg.Settings.Live.PollIntervalMs)*time.Millisecond,
		cfg.Settings.Live.HeartbeatSecs,
	)
	lifecycle := NewLifecycle(cfg.Settings.Daemon)

	port := cfg.Settings.Daemon.Port
	if port == 0 {
		port = defaultPort
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("GET /api/sessions", handlers.Sessions)
	mux.HandleFunc("GET /api/events", handlers.Events)
	mux.HandleFunc("GET /api/segments", handlers.Segments)
	mux.HandleFunc("GET /api/videos", handlers.Videos)

	mux.HandleFunc("GET /sse/events", broadcaster.ServeHTTP)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("127.0.0.1:%d", port),
			Handler:           corsMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		handlers:    handlers,
		broadcaster: broadcaster,
		lifecycle:   lifecycle,
		port:        port,
	}
}

// Start writes the PID file, starts the broadcaster, and begins serving
// in a background goroutine. It returns once the listener is launched.
func (s *Server) Start(ctx context.Context) error {
	if err := s.lifecycle.WritePID(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	s.broadcaster.Start(ctx)

	logger.Info().
		Int("port", s.port).
		Str("url", fmt.Sprintf("http://127.0.0.1:%d", s.port)).
		Msg("Starting timestone daemon")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Server error")
		}
	}()

	return nil
}

// Stop drains SSE clients, removes the PID file, and shuts the HTTP
// server down within the given context.
func (s *Server) Stop(ctx context.Context) error {
	logger.Info().Msg("Stopping timestone daemon")

	s.broadcaster.Stop()
	_ = s.lifecycle.RemovePID()

	return s.httpServer.Shutdown(ctx)
}

// Port returns the server port
func (s *Server) Port() int {
	return s.port
}

// Lifecycle returns the lifecycle manager
func (s *Server) Lifecycle() *Lifecycle {
	return s.lifecycle
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
