// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for match, server and logging settings.
//
// Values here are plain numbers and strings. The match package converts the
// arena section to fixed point before anything reaches the simulation.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the match runner settings.
type SimConfig struct {
	TickRate        int // Ticks per second; the simulation's time unit is 64 ticks
	CheckpointDepth int // How many ticks back a rollback may reach
	IntakeCapacity  int // Pending network inputs before new ones are refused
	PeerInputRate   int // Inputs per second accepted from a single peer
	PeerInputBurst  int // Burst allowance for PeerInputRate
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:        64,
		CheckpointDepth: 64,
		IntakeCapacity:  256,
		PeerInputRate:   128, // two full input streams worth of headroom
		PeerInputBurst:  16,
	}
}

// SimFromEnv returns simulation configuration with environment variable overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvInt("CHECKPOINT_DEPTH", 0); v > 0 {
		cfg.CheckpointDepth = v
	}
	if v := getEnvInt("INTAKE_CAPACITY", 0); v > 0 {
		cfg.IntakeCapacity = v
	}
	if v := getEnvInt("PEER_INPUT_RATE", 0); v > 0 {
		cfg.PeerInputRate = v
	}
	if v := getEnvInt("PEER_INPUT_BURST", 0); v > 0 {
		cfg.PeerInputBurst = v
	}

	return cfg
}

// TickInterval is the wall-clock time between two ticks.
func (c SimConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 64
	}
	return time.Second / time.Duration(c.TickRate)
}

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ArenaConfig holds the stage layout and the character files for both slots.
type ArenaConfig struct {
	Ground     float64   // Height the fighters stand on
	Walls      float64   // Symmetric horizontal bound
	Gravity    float64   // Vertical acceleration per time unit (negative is down)
	StartX     float64   // Slot 0 starts at -StartX, slot 1 at +StartX
	Characters [2]string // Character JSON paths; empty means the built-in default
}

// DefaultArena returns the standard stage.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		Ground:  -4.5,
		Walls:   8,
		Gravity: -30,
		StartX:  7,
	}
}

// ArenaFromEnv returns arena configuration with environment variable overrides.
func ArenaFromEnv() ArenaConfig {
	cfg := DefaultArena()

	cfg.Ground = getEnvFloat("ARENA_GROUND", cfg.Ground)
	if v := getEnvFloat("ARENA_WALLS", 0); v > 0 {
		cfg.Walls = v
	}
	if v := getEnvFloat("ARENA_GRAVITY", 0); v < 0 {
		cfg.Gravity = v
	}
	if v := getEnvFloat("ARENA_START_X", 0); v > 0 {
		cfg.StartX = v
	}
	cfg.Characters[0] = os.Getenv("CHARACTER_P1")
	cfg.Characters[1] = os.Getenv("CHARACTER_P2")

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string // CORS and WebSocket origin allowlist
	MaxWSClients   int      // Concurrent checksum feed subscribers
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		MaxWSClients:   64,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}
	if n := getEnvInt("MAX_WS_CLIENTS", 0); n > 0 {
		cfg.MaxWSClients = n
	}

	return cfg
}

// Addr returns the listen address for the API server.
func (c ServerConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig configures the debug server (pprof, metrics, health).
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST stay on localhost in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
	SentryDSN     string // Panic reporting; empty disables it
}

// DefaultObservability returns safe defaults.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// ObservabilityFromEnv returns observability configuration with environment overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	if os.Getenv("DEBUG_SERVER") == "false" {
		cfg.Enabled = false
	}
	cfg.ListenAddr = getEnv("DEBUG_ADDR", cfg.ListenAddr)
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	cfg.SentryDSN = os.Getenv("SENTRY_DSN")

	return cfg
}

// =============================================================================
// EVENT LOG & REPLAY CONFIGURATION
// =============================================================================

// EventLogConfig holds the JSONL event log settings.
type EventLogConfig struct {
	Path          string // Empty disables file output
	BufferSize    int    // Ring size; older events are dropped when full
	MaxPerSec     int    // Global rate limit
	MaxPerSubject int    // Per-player rate limit per second
}

// DefaultEventLog returns the default event log configuration.
func DefaultEventLog() EventLogConfig {
	return EventLogConfig{
		Path:          "events.jsonl",
		BufferSize:    1024,
		MaxPerSec:     10000,
		MaxPerSubject: 200,
	}
}

// EventLogFromEnv returns event log configuration with environment overrides.
func EventLogFromEnv() EventLogConfig {
	cfg := DefaultEventLog()

	cfg.Path = getEnv("EVENT_LOG_PATH", cfg.Path)
	if v := getEnvInt("EVENT_LOG_BUFFER", 0); v > 0 {
		cfg.BufferSize = v
	}
	if v := getEnvInt("EVENT_LOG_RATE", 0); v > 0 {
		cfg.MaxPerSec = v
	}

	return cfg
}

// ReplayConfig controls input recording.
type ReplayConfig struct {
	Path string // Empty disables recording
}

// ReplayFromEnv returns replay configuration with environment overrides.
func ReplayFromEnv() ReplayConfig {
	return ReplayConfig{Path: os.Getenv("REPLAY_PATH")}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim           SimConfig
	Arena         ArenaConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	EventLog      EventLogConfig
	Replay        ReplayConfig
}

// Default returns the complete configuration without environment overrides.
func Default() AppConfig {
	return AppConfig{
		Sim:           DefaultSim(),
		Arena:         DefaultArena(),
		Server:        DefaultServer(),
		Observability: DefaultObservability(),
		EventLog:      DefaultEventLog(),
	}
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:           SimFromEnv(),
		Arena:         ArenaFromEnv(),
		Server:        ServerFromEnv(),
		Observability: ObservabilityFromEnv(),
		EventLog:      EventLogFromEnv(),
		Replay:        ReplayFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
