package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"fightcore/internal/config"
	"fightcore/internal/game"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for the checksum feed.
type Server struct {
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	snapshots   SnapshotSource

	mu      sync.Mutex
	httpSrv *http.Server
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// NewServer creates a new API server.
//
// IMPORTANT: Background workers do NOT start until Start() is called, apart from
// the rate limiter's cleanup loop, which Shutdown stops.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(cfg config.ServerConfig, snapshots SnapshotSource, roster game.Roster, inputs InputSink) *Server {
	s := &Server{
		wsHub:       NewWebSocketHub(cfg.MaxWSClients, cfg.AllowedOrigins),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
		snapshots:   snapshots,
	}

	s.router = NewRouter(RouterConfig{
		Snapshots:   snapshots,
		Roster:      roster,
		Inputs:      inputs,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.AllowedOrigins,
	})

	// WebSocket routes need the wsHub instance, so they are not part of NewRouter.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// startWorkers launches the hub and its broadcast loop.
func (s *Server) startWorkers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.workers.Add(2)
	go func() {
		defer s.workers.Done()
		s.wsHub.Run(ctx)
	}()
	go func() {
		defer s.workers.Done()
		s.wsHub.BroadcastLoop(ctx, s.snapshots)
	}()
}

// Start begins the HTTP server AND starts background workers. It blocks until
// the listener fails or Shutdown is called, in which case it returns nil.
func (s *Server) Start(addr string) error {
	s.startWorkers()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("📡 Checksum feed: ws://localhost%s/ws", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown stops accepting requests, closes WebSocket clients and waits for the
// background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel := s.httpSrv, s.cancel
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	if cancel != nil {
		cancel()
	}
	s.workers.Wait()
	s.rateLimiter.Stop()
	return err
}
