package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"fightcore/internal/config"
	"fightcore/internal/game"
	"fightcore/internal/match"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	goleak.VerifyTestMain(m)
}

// ============================================================================
// Helpers
// ============================================================================

func onlineRoster() game.Roster {
	return game.Roster{Slots: []game.PlayerSlot{
		{Kind: game.PlayerLocal, Handle: "p1"},
		{Kind: game.PlayerSpectator, Handle: "caster"},
		{Kind: game.PlayerRemote, Handle: "p2"},
	}}
}

func newTestRouter(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()
	if cfg.RateLimiter == nil {
		rlCfg := RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000, IdleTimeout: time.Minute}
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		cfg.RateLimiter = NewIPRateLimiter(rlCfg)
		t.Cleanup(cfg.RateLimiter.Stop)
	}
	if cfg.Snapshots == nil {
		cfg.Snapshots = match.NewSnapshotPool()
	}
	cfg.DisableLogging = true
	return NewRouter(cfg)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func publishedPool(tick game.Tick, checksum uint64) *match.SnapshotPool {
	pool := match.NewSnapshotPool()
	pool.Publish(&match.MatchSnapshot{
		MatchID:   "m-1",
		Tick:      tick,
		Checksum:  checksum,
		Checksums: []match.TickChecksum{{Tick: tick - 1, Checksum: 7}, {Tick: tick, Checksum: checksum}},
	})
	return pool
}

// ============================================================================
// Match state
// ============================================================================

func TestGetMatchBeforeFirstSnapshot(t *testing.T) {
	h := newTestRouter(t, RouterConfig{Roster: onlineRoster()})

	rec := do(h, http.MethodGet, "/api/match", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(h, http.MethodGet, "/api/match/checksums", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetMatchReturnsLatestSnapshot(t *testing.T) {
	h := newTestRouter(t, RouterConfig{Snapshots: publishedPool(42, 0xabc), Roster: onlineRoster()})

	rec := do(h, http.MethodGet, "/api/match", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap match.MatchSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, game.Tick(42), snap.Tick)
	assert.Equal(t, uint64(0xabc), snap.Checksum)
	assert.Equal(t, uint64(1), snap.Sequence)
	assert.Equal(t, "m-1", snap.MatchID)
}

func TestGetChecksums(t *testing.T) {
	h := newTestRouter(t, RouterConfig{Snapshots: publishedPool(10, 99), Roster: onlineRoster()})

	rec := do(h, http.MethodGet, "/api/match/checksums", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		MatchID   string               `json:"matchId"`
		Tick      game.Tick            `json:"tick"`
		Checksums []match.TickChecksum `json:"checksums"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "m-1", body.MatchID)
	assert.Equal(t, game.Tick(10), body.Tick)
	assert.Equal(t, []match.TickChecksum{{Tick: 9, Checksum: 7}, {Tick: 10, Checksum: 99}}, body.Checksums)
}

func TestGetRoster(t *testing.T) {
	h := newTestRouter(t, RouterConfig{Roster: onlineRoster()})

	rec := do(h, http.MethodGet, "/api/roster", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var slots []struct {
		Kind    string `json:"kind"`
		Handle  string `json:"handle"`
		Fighter int    `json:"fighter"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&slots))
	require.Len(t, slots, 3)
	assert.Equal(t, "local", slots[0].Kind)
	assert.Equal(t, 0, slots[0].Fighter)
	assert.Equal(t, "spectator", slots[1].Kind)
	assert.Equal(t, -1, slots[1].Fighter)
	assert.Equal(t, "p2", slots[2].Handle)
	assert.Equal(t, 1, slots[2].Fighter)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, RouterConfig{Roster: onlineRoster()})
	rec := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

// ============================================================================
// Input submission
// ============================================================================

func TestPostInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"accepted", `{"peer":"p2","tick":5,"input":"left+light"}`, http.StatusAccepted},
		{"no buttons", `{"peer":"p2","tick":6,"input":"none"}`, http.StatusAccepted},
		{"local player", `{"peer":"p1","tick":5,"input":"left"}`, http.StatusBadRequest},
		{"spectator", `{"peer":"caster","tick":5,"input":"left"}`, http.StatusBadRequest},
		{"unknown peer", `{"peer":"nobody","tick":5,"input":"left"}`, http.StatusBadRequest},
		{"negative tick", `{"peer":"p2","tick":-1,"input":"left"}`, http.StatusBadRequest},
		{"unknown flag", `{"peer":"p2","tick":5,"input":"left+kick"}`, http.StatusBadRequest},
		{"malformed", `{"peer":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intake := match.NewIntake(config.DefaultSim())
			h := newTestRouter(t, RouterConfig{Roster: onlineRoster(), Inputs: intake})

			rec := do(h, http.MethodPost, "/api/input", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			if tt.want == http.StatusAccepted {
				subs := intake.Drain()
				require.Len(t, subs, 1)
				assert.Equal(t, "p2", subs[0].Peer)
			} else {
				assert.Zero(t, intake.Len())
			}
		})
	}
}

func TestPostInputQueuesParsedFlags(t *testing.T) {
	intake := match.NewIntake(config.DefaultSim())
	h := newTestRouter(t, RouterConfig{Roster: onlineRoster(), Inputs: intake})

	rec := do(h, http.MethodPost, "/api/input", `{"peer":"p2","tick":12,"input":"up+special"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	subs := intake.Drain()
	require.Len(t, subs, 1)
	assert.Equal(t, match.Submission{
		Peer:  "p2",
		Tick:  12,
		Input: game.Input(game.InputUp | game.InputSpecialAttack),
	}, subs[0])
}

func TestPostInputBackpressure(t *testing.T) {
	t.Run("peer rate limit", func(t *testing.T) {
		cfg := config.DefaultSim()
		cfg.PeerInputRate = 1
		cfg.PeerInputBurst = 1
		h := newTestRouter(t, RouterConfig{Roster: onlineRoster(), Inputs: match.NewIntake(cfg)})

		assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/api/input", `{"peer":"p2","tick":1,"input":"up"}`).Code)
		rec := do(h, http.MethodPost, "/api/input", `{"peer":"p2","tick":2,"input":"up"}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})

	t.Run("intake full", func(t *testing.T) {
		cfg := config.DefaultSim()
		cfg.IntakeCapacity = 1
		h := newTestRouter(t, RouterConfig{Roster: onlineRoster(), Inputs: match.NewIntake(cfg)})

		assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/api/input", `{"peer":"p2","tick":1,"input":"up"}`).Code)
		assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodPost, "/api/input", `{"peer":"p2","tick":2,"input":"up"}`).Code)
	})

	t.Run("no intake", func(t *testing.T) {
		h := newTestRouter(t, RouterConfig{Roster: onlineRoster()})
		assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodPost, "/api/input", `{"peer":"p2","tick":1,"input":"up"}`).Code)
	})
}

// ============================================================================
// Rate limiting and origins
// ============================================================================

func TestRouterRateLimitsPerIP(t *testing.T) {
	h := newTestRouter(t, RouterConfig{
		Roster:          onlineRoster(),
		RateLimitConfig: &RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, IdleTimeout: time.Minute},
	})

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodGet, "/health", "").Code)

	// A different client still gets through.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, "203.0.113.9", GetClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.1")
	assert.Equal(t, "198.51.100.1", GetClientIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.44, 10.0.0.1")
	assert.Equal(t, "192.0.2.44", GetClientIP(req))
}

func TestIsAllowedOrigin(t *testing.T) {
	allowed := []string{"https://arena.example.com"}
	assert.True(t, IsAllowedOrigin("https://arena.example.com", allowed))
	assert.True(t, IsAllowedOrigin("http://localhost:5173", allowed))
	assert.True(t, IsAllowedOrigin("http://127.0.0.1:8080", nil))
	assert.False(t, IsAllowedOrigin("https://evil.example.com", allowed))
	assert.False(t, IsAllowedOrigin("http://localhost.evil.example.com", allowed))
	assert.False(t, IsAllowedOrigin("", allowed))
}

func TestWebSocketRateLimiter(t *testing.T) {
	rejected := rateLimitDecisions.WithLabelValues("ws", "rejected")
	before := testutil.ToFloat64(rejected)

	wrl := NewWebSocketRateLimiter(2)
	assert.True(t, wrl.Allow("a"))
	assert.True(t, wrl.Allow("a"))
	assert.False(t, wrl.Allow("a"))
	assert.True(t, wrl.Allow("b"))
	assert.Equal(t, 1.0, testutil.ToFloat64(rejected)-before)

	wrl.Release("a")
	assert.True(t, wrl.Allow("a"))
	assert.False(t, wrl.Allow("a"))

	wrl.Release("b")
	wrl.Release("b") // unmatched release must not free an extra slot
	assert.NotContains(t, wrl.held, "b")
	assert.True(t, wrl.Allow("b"))
	assert.True(t, wrl.Allow("b"))
	assert.False(t, wrl.Allow("b"))
}

func TestIPRateLimiterSweepsIdleClients(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTimeout: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	allowed := rateLimitDecisions.WithLabelValues("http", "allowed")
	before := testutil.ToFloat64(allowed)

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.Equal(t, 1.0, testutil.ToFloat64(allowed)-before)

	now = now.Add(30 * time.Minute)
	assert.True(t, rl.Allow("b"))
	now = now.Add(45 * time.Minute)
	rl.sweep()
	assert.NotContains(t, rl.clients, "a")
	assert.Contains(t, rl.clients, "b")
	assert.Equal(t, 1.0, testutil.ToFloat64(rateLimitClients.WithLabelValues("http")))

	// a forgotten client starts over with a full bucket
	assert.True(t, rl.Allow("a"))
}

// ============================================================================
// Debug server
// ============================================================================

func TestDebugHandlerBasicAuth(t *testing.T) {
	h := NewDebugHandler(config.ObservabilityConfig{BasicAuthUser: "ops", BasicAuthPass: "secret"})

	rec := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("ops", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStartDebugServerDisabled(t *testing.T) {
	assert.Nil(t, StartDebugServer(config.ObservabilityConfig{Enabled: false}))
}

// ============================================================================
// WebSocket checksum feed
// ============================================================================

func TestWebSocketChecksumFeed(t *testing.T) {
	pool := publishedPool(64, 0x1234)
	s := NewServer(config.DefaultServer(), pool, onlineRoster(), nil)
	s.startWorkers()
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Event string          `json:"event"`
		Data  checksumMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(data)).Decode(&msg))
	assert.Equal(t, "match:checksum", msg.Event)
	assert.Equal(t, checksumMessage{Sequence: 1, Tick: 64, Checksum: 0x1234}, msg.Data)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Zero(t, s.wsHub.ClientCount())

	// The hub closed our connection.
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	s := NewServer(config.DefaultServer(), match.NewSnapshotPool(), onlineRoster(), nil)
	s.startWorkers()
	ts := httptest.NewServer(s.Router())
	defer ts.Close()
	defer s.Shutdown(context.Background())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	hdr := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
