package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 64, cfg.Sim.TickRate)
	assert.Equal(t, 64, cfg.Sim.CheckpointDepth)
	assert.Equal(t, time.Second/64, cfg.Sim.TickInterval())
	assert.Equal(t, -4.5, cfg.Arena.Ground)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, "127.0.0.1:6060", cfg.Observability.ListenAddr)
	assert.Empty(t, cfg.Replay.Path)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TICK_RATE", "30")
	t.Setenv("CHECKPOINT_DEPTH", "8")
	t.Setenv("ARENA_GROUND", "0")
	t.Setenv("ARENA_WALLS", "12.5")
	t.Setenv("ARENA_GRAVITY", "5") // positive gravity is ignored
	t.Setenv("CHARACTER_P2", "heavy.json")
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("DEBUG_SERVER", "false")
	t.Setenv("EVENT_LOG_PATH", "/tmp/ev.jsonl")
	t.Setenv("REPLAY_PATH", "match.rpl")

	cfg := Load()
	assert.Equal(t, 30, cfg.Sim.TickRate)
	assert.Equal(t, 8, cfg.Sim.CheckpointDepth)
	assert.Equal(t, 0.0, cfg.Arena.Ground)
	assert.Equal(t, 12.5, cfg.Arena.Walls)
	assert.Equal(t, -30.0, cfg.Arena.Gravity)
	assert.Equal(t, [2]string{"", "heavy.json"}, cfg.Arena.Characters)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, "/tmp/ev.jsonl", cfg.EventLog.Path)
	assert.Equal(t, "match.rpl", cfg.Replay.Path)
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("TICK_RATE", "fast")
	assert.Equal(t, 64, SimFromEnv().TickRate)
}
