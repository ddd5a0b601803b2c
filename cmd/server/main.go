package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"fightcore/internal/api"
	"fightcore/internal/config"
	"fightcore/internal/game"
	"fightcore/internal/match"
	"fightcore/internal/replay"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  FIGHTCORE - ROLLBACK SIM")
	log.Println("🎮 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	simCfg := appConfig.Sim

	if dsn := appConfig.Observability.SentryDSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, AttachStacktrace: true}); err != nil {
			log.Printf("⚠️ Sentry disabled: %v", err)
		} else {
			log.Println("🛰️ Sentry panic reporting enabled")
			defer sentry.Flush(2 * time.Second)
			defer sentry.Recover()
		}
	}

	gameCfg, err := match.GameConfig(appConfig.Arena)
	if err != nil {
		log.Fatalf("❌ Arena config: %v", err)
	}
	roster := rosterFromEnv()
	if err := roster.Validate(); err != nil {
		log.Fatalf("❌ Roster: %v", err)
	}
	log.Printf("🎮 Config: %d TPS, checkpoint depth %d, characters %s vs %s",
		simCfg.TickRate, simCfg.CheckpointDepth, gameCfg.Characters[0].Name, gameCfg.Characters[1].Name)

	// Start event log
	eventLog := match.NewEventLog(appConfig.EventLog)
	if err := eventLog.Start(); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else if appConfig.EventLog.Path != "" {
		log.Printf("📝 Event log: %s", appConfig.EventLog.Path)
	}

	matchID := uuid.New()
	intake := match.NewIntake(simCfg)
	snapshots := match.NewSnapshotPool()
	opts := []match.Option{
		match.WithMatchID(matchID),
		match.WithSimConfig(simCfg),
		match.WithEventLog(eventLog),
		match.WithIntake(intake),
		match.WithSnapshots(snapshots),
	}

	var recording *replay.Writer
	if path := appConfig.Replay.Path; path != "" {
		recording, err = replay.Create(path, replay.Header{
			MatchID:          matchID,
			CreatedUnixNano:  time.Now().UnixNano(),
			CharacterDigests: [2]uint64{gameCfg.Characters[0].Digest(), gameCfg.Characters[1].Digest()},
			Roster:           roster,
		})
		if err != nil {
			log.Fatalf("❌ Replay file: %v", err)
		}
		opts = append(opts, match.WithRecorder(recording))
		log.Printf("🎞️ Recording replay to %s", path)
	}

	runner, err := match.NewRunner(gameCfg, roster, opts...)
	if err != nil {
		log.Fatalf("❌ Match: %v", err)
	}

	// Start debug server
	debugSrv := api.StartDebugServer(appConfig.Observability)

	server := api.NewServer(appConfig.Server, snapshots, roster, intake)
	go func() {
		if err := server.Start(appConfig.Server.Addr()); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	matchTicks := getEnvInt("MATCH_TICKS", 0)
	runDone := make(chan error, 1)
	go func() {
		defer reportPanic()
		runDone <- runner.Run(ctx, scriptedInputs(roster, matchTicks))
	}()

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("❌ Match stopped: %v", err)
	} else if err == nil {
		log.Printf("🏁 Match reached %d ticks", matchTicks)
	}

	log.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ API shutdown: %v", err)
	}
	if debugSrv != nil {
		debugSrv.Shutdown(shutdownCtx)
	}
	if err := runner.Close(); err != nil {
		log.Printf("⚠️ Replay incomplete: %v", err)
	}
	if recording != nil {
		if err := recording.Close(); err != nil {
			log.Printf("⚠️ Replay close: %v", err)
		}
	}
	eventLog.Stop()
	log.Println("👋 Goodbye!")
}

// rosterFromEnv builds a local-vs-local roster, or local-vs-remote when
// REMOTE_PEER names the remote handle. SPECTATORS adds comma-separated watchers.
func rosterFromEnv() game.Roster {
	roster := game.LocalVersus()
	if peer := os.Getenv("REMOTE_PEER"); peer != "" {
		roster.Slots[1] = game.PlayerSlot{Kind: game.PlayerRemote, Handle: peer}
		log.Printf("🌐 Remote peer %q feeds slot 1 via POST /api/input", peer)
	}
	for _, handle := range strings.Split(os.Getenv("SPECTATORS"), ",") {
		if handle = strings.TrimSpace(handle); handle == "" {
			continue
		}
		roster.Slots = append(roster.Slots, game.PlayerSlot{Kind: game.PlayerSpectator, Handle: handle})
	}
	return roster
}

// scriptedInputs drives local fighters through a looping approach, jab and retreat
// pattern. It ends the match after limit ticks when limit is positive.
func scriptedInputs(roster game.Roster, limit int) match.InputSource {
	players := roster.Players()
	return match.InputSourceFunc(func(tick game.Tick) ([]game.InputFrame, error) {
		if limit > 0 && int(tick) >= limit {
			return nil, io.EOF
		}
		frames := make([]game.InputFrame, game.FighterCount)
		for slot := range frames {
			if players[slot].Kind == game.PlayerLocal {
				frames[slot] = game.Confirmed(scriptFlags(slot, tick))
			}
		}
		return frames, nil
	})
}

func scriptFlags(slot int, tick game.Tick) game.InputFlags {
	toward, away := game.InputRight, game.InputLeft
	if slot == 1 {
		toward, away = away, toward
	}
	phase := tick % 160
	switch {
	case phase < 48:
		return toward
	case phase == 56, phase == 80:
		return game.InputLightAttack
	case phase >= 100 && phase < 130:
		return away
	case phase == 140 && slot == 0:
		return game.InputUp
	default:
		return game.InputNone
	}
}

// reportPanic forwards a panic to Sentry before letting it crash the process.
func reportPanic() {
	if err := recover(); err != nil {
		sentry.CurrentHub().Recover(err)
		sentry.Flush(2 * time.Second)
		panic(err)
	}
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
