package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/stationgen/internal/config"
	"github.com/lawnchairsociety/stationgen/internal/construction"
	"github.com/lawnchairsociety/stationgen/internal/generator"
	"github.com/lawnchairsociety/stationgen/internal/logger"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

type viewer struct {
	conn *websocket.Conn
	send chan []byte
	ip   string
}

// Hub fans generation events out to connected viewers. Viewers that join
// late are replayed every event of the session so far; viewers that fall
// behind are dropped.
type Hub struct {
	cfg     config.StreamConfig
	limiter *ConnLimiter

	mu      sync.Mutex
	viewers map[*viewer]struct{}
	history [][]byte
}

// NewHub creates a hub using the stream section's origin and limit
// settings.
func NewHub(cfg config.StreamConfig) *Hub {
	return &Hub{
		cfg:     cfg,
		limiter: NewConnLimiter(cfg.MaxPerIP, cfg.MaxTotal),
		viewers: make(map[*viewer]struct{}),
	}
}

// ViewerCount returns the number of connected viewers.
func (h *Hub) ViewerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// Limiter returns the hub's connection limiter.
func (h *Hub) Limiter() *ConnLimiter {
	return h.limiter
}

// Broadcast records ev and sends it to every viewer.
func (h *Hub) Broadcast(ev Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, msg)
	for v := range h.viewers {
		select {
		case v.send <- msg:
		default:
			logger.Warning("Dropping slow viewer", "ip", v.ip)
			h.removeLocked(v)
		}
	}
	return nil
}

// PublishRoom broadcasts a room placement. It has the signature of
// generator.Generator.OnCommit.
func (h *Hub) PublishRoom(r *construction.Room) {
	if err := h.Broadcast(NewRoomEvent(r)); err != nil {
		logger.Error("Failed to encode room event", "room", r.ID(), "error", err)
	}
}

// PublishOutcome broadcasts the end of a session.
func (h *Hub) PublishOutcome(o generator.Outcome) {
	if err := h.Broadcast(NewOutcomeEvent(o)); err != nil {
		logger.Error("Failed to encode outcome event", "error", err)
	}
}

// Reset forgets the replay history, for starting a new session.
func (h *Hub) Reset() {
	h.mu.Lock()
	h.history = nil
	h.mu.Unlock()
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers {
		h.removeLocked(v)
	}
}

func (h *Hub) add(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v.send = make(chan []byte, len(h.history)+sendBuffer)
	for _, msg := range h.history {
		v.send <- msg
	}
	h.viewers[v] = struct{}{}
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(v)
}

func (h *Hub) removeLocked(v *viewer) {
	if _, ok := h.viewers[v]; !ok {
		return
	}
	delete(h.viewers, v)
	close(v.send)
	h.limiter.Release(v.ip)
}

// ServeHTTP upgrades viewer connections.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := realIP(r)
	if !h.limiter.TryAcquire(ip) {
		logger.Warning("Viewer connection rejected: limit reached", "ip", ip)
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := h.cfg.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("Viewer connection rejected: origin not allowed", "origin", origin, "host", r.Host)
			}
			return allowed
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.limiter.Release(ip)
		logger.Debug("Viewer upgrade failed", "ip", ip, "error", err)
		return
	}
	if h.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageSize)
	}

	v := &viewer{conn: conn, ip: ip}
	h.add(v)
	logger.Info("Viewer connected", "ip", ip)

	go h.writePump(v)
	go h.readPump(v)
}

// writePump owns all writes to the connection. It exits once the send
// channel is closed.
func (h *Hub) writePump(v *viewer) {
	defer v.conn.Close()
	for msg := range v.send {
		v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(v)
			for range v.send {
			}
			return
		}
	}
	v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	v.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards viewer input and notices disconnects.
func (h *Hub) readPump(v *viewer) {
	defer func() {
		h.remove(v)
		logger.Info("Viewer disconnected", "ip", v.ip)
	}()
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Handler returns the viewer mux: the WebSocket at /ws and the session
// history as a JSON array at /events.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.HandleFunc("/events", h.serveHistory)
	return mux
}

func (h *Hub) serveHistory(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	events := make([]json.RawMessage, len(h.history))
	for i, msg := range h.history {
		events[i] = msg
	}
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(events); err != nil {
		logger.Debug("Failed to write history", "error", err)
	}
}

// ListenAndServe serves Handler on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Viewer stream listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.Close()
	err := srv.Shutdown(shutdownCtx)
	if e := <-errCh; e != nil && !errors.Is(e, http.ErrServerClosed) {
		return e
	}
	return err
}
