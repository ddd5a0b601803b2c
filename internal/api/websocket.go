package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fightcore/internal/game"
)

const (
	// DefaultWSConnectionsTotal is the hub-wide connection cap when none is configured
	DefaultWSConnectionsTotal = 64

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 4

	// broadcastInterval is how often the hub polls for a new snapshot
	broadcastInterval = 100 * time.Millisecond

	writeWait = 2 * time.Second
)

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// checksumMessage is the payload of "match:checksum" events.
type checksumMessage struct {
	Sequence uint64    `json:"sequence"`
	Tick     game.Tick `json:"tick"`
	Checksum uint64    `json:"checksum"`
}

// WebSocketHub pushes the match checksum feed to spectators and peers.
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex

	maxTotal  int
	wsLimiter *WebSocketRateLimiter
	upgrader  websocket.Upgrader
}

// NewWebSocketHub creates a hub that accepts at most maxTotal connections from
// the given origins. maxTotal <= 0 uses DefaultWSConnectionsTotal.
func NewWebSocketHub(maxTotal int, origins []string) *WebSocketHub {
	if maxTotal <= 0 {
		maxTotal = DefaultWSConnectionsTotal
	}
	h := &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		maxTotal:   maxTotal,
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || IsAllowedOrigin(origin, origins) {
				return true
			}

			// Log rejected origin for security monitoring
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes
// every connection.
func (h *WebSocketHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn, client := range h.clients {
				h.wsLimiter.Release(client.ip)
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			h.remove(conn)
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.remove(conn)
				}
			}
			count := len(h.clients)
			h.mu.Unlock()
			UpdateWSConnections(count)
			IncrementWSMessages()
		}
	}
}

// remove drops conn. Callers hold h.mu.
func (h *WebSocketHub) remove(conn *websocket.Conn) {
	if client, ok := h.clients[conn]; ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg := map[string]interface{}{
		"event": event,
		"data":  data,
	}

	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastLoop publishes a "match:checksum" event whenever src has a new
// snapshot, until ctx is cancelled.
func (h *WebSocketHub) BroadcastLoop(ctx context.Context, src SnapshotSource) {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if h.ClientCount() == 0 {
			continue
		}
		snap := src.Latest()
		if snap == nil || snap.Sequence == lastSeq {
			continue
		}
		lastSeq = snap.Sequence
		h.Broadcast("match:checksum", checksumMessage{
			Sequence: snap.Sequence,
			Tick:     snap.Tick,
			Checksum: snap.Checksum,
		})
	}
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= h.maxTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}

	select {
	case h.register <- &wsClient{conn: conn, ip: ip}:
	case <-h.done:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	// The feed is one-way; reading only detects the close.
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
