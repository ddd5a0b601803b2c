package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fightcore/internal/game"
	"fightcore/internal/match"
)

// maxInputBody caps POST /api/input bodies.
const maxInputBody = 4 << 10

// inputRequest is the POST /api/input body. Input uses the "left+light" form.
type inputRequest struct {
	Peer  string    `json:"peer"`
	Tick  game.Tick `json:"tick"`
	Input string    `json:"input"`
}

func (h *routerHandlers) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Latest()
	if snap == nil {
		writeError(w, "Match not started", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetChecksums(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Latest()
	if snap == nil {
		writeError(w, "Match not started", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]interface{}{
		"matchId":   snap.MatchID,
		"tick":      snap.Tick,
		"checksums": snap.Checksums,
	})
}

func (h *routerHandlers) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	type slot struct {
		Kind    string `json:"kind"`
		Handle  string `json:"handle"`
		Fighter int    `json:"fighter"` // -1 for spectators
	}
	out := make([]slot, 0, len(h.roster.Slots))
	for _, s := range h.roster.Slots {
		out = append(out, slot{Kind: s.Kind.String(), Handle: s.Handle, Fighter: h.roster.FighterSlot(s.Handle)})
	}
	writeJSON(w, out)
}

func (h *routerHandlers) handlePostInput(w http.ResponseWriter, r *http.Request) {
	if h.inputs == nil {
		writeError(w, "Input intake disabled", http.StatusServiceUnavailable)
		return
	}

	var req inputRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBody)).Decode(&req); err != nil {
		inputsSubmitted.WithLabelValues("invalid").Inc()
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	slot := h.roster.FighterSlot(req.Peer)
	if slot < 0 || !h.isRemote(req.Peer) {
		inputsSubmitted.WithLabelValues("invalid").Inc()
		writeError(w, "Peer is not a remote player", http.StatusBadRequest)
		return
	}
	if req.Tick < game.FirstTick {
		inputsSubmitted.WithLabelValues("invalid").Inc()
		writeError(w, "Tick must not be negative", http.StatusBadRequest)
		return
	}
	flags, err := game.ParseInputFlags(req.Input)
	if err != nil {
		inputsSubmitted.WithLabelValues("invalid").Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.inputs.Push(match.Submission{Peer: req.Peer, Tick: req.Tick, Input: game.Input(flags)})
	switch {
	case errors.Is(err, match.ErrRateLimited):
		inputsSubmitted.WithLabelValues("rate_limit").Inc()
		w.Header().Set("Retry-After", "1")
		writeError(w, "Too many inputs", http.StatusTooManyRequests)
	case errors.Is(err, match.ErrIntakeFull):
		inputsSubmitted.WithLabelValues("full").Inc()
		log.Printf("⚠️ Input intake full, dropped %s@%d", req.Peer, req.Tick)
		writeError(w, "Intake full", http.StatusServiceUnavailable)
	case err != nil:
		writeError(w, err.Error(), http.StatusInternalServerError)
	default:
		inputsSubmitted.WithLabelValues("accepted").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]interface{}{"accepted": true, "slot": slot})
	}
}

func (h *routerHandlers) isRemote(handle string) bool {
	for _, s := range h.roster.Slots {
		if s.Handle == handle {
			return s.Kind == game.PlayerRemote
		}
	}
	return false
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
