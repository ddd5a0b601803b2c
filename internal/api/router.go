package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"fightcore/internal/game"
	"fightcore/internal/match"
)

// SnapshotSource is the read side of the match runner used by the API.
// *match.SnapshotPool satisfies it; tests can pass a fake.
type SnapshotSource interface {
	// Latest returns the most recent published snapshot, or nil before the first.
	Latest() *match.MatchSnapshot
}

// InputSink accepts confirmed inputs from remote peers.
// *match.Intake satisfies it.
type InputSink interface {
	Push(s match.Submission) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Snapshots: pool,
//	    Roster:    game.LocalVersus(),
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Snapshots is the published match state (required)
	Snapshots SnapshotSource

	// Roster is the match roster, used to validate input submissions
	Roster game.Roster

	// Inputs receives POST /api/input submissions. If nil, the endpoint answers 503.
	Inputs InputSink

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	// The caller owns its lifecycle and must Stop it.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, only loopback origins are allowed.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	snapshots SnapshotSource
	roster    game.Roster
	inputs    InputSink
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE as long as cfg.RateLimiter is set:
//   - No goroutines are started
//   - No network listeners are opened
//
// Without a RateLimiter one is created, which starts its cleanup goroutine.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	h := &routerHandlers{
		snapshots: cfg.Snapshots,
		roster:    cfg.Roster.Clone(),
		inputs:    cfg.Inputs,
	}

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/match", h.handleGetMatch)
		r.Get("/match/checksums", h.handleGetChecksums)
		r.Get("/roster", h.handleGetRoster)
		r.Post("/input", h.handlePostInput)
	})

	return r
}

// metricsMiddleware records latency by route pattern so label cardinality stays
// bounded by the route table.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
