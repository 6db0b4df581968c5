package httpd

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Endpoint is handed to a websocket handler, exposing read/write
// closures around a single upgraded connection.
type Endpoint struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteJSON sends msg as a single text frame, safe for concurrent use.
func (e *Endpoint) WriteJSON(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return e.conn.WriteMessage(websocket.TextMessage, data)
}

// Read blocks for the next client message; returns an error (including
// on disconnect) the caller should treat as end-of-session.
func (e *Endpoint) Read() ([]byte, error) {
	_, data, err := e.conn.ReadMessage()
	return data, err
}

func (e *Endpoint) Close() error {
	return e.conn.Close()
}

// WebsocketHandlerFunc is the callback a caller supplies to
// RegisterWebsocketRoute; it owns the connection's lifetime until it
// returns.
type WebsocketHandlerFunc func(ep *Endpoint, sess *Session)

// RegisterWebsocketRoute upgrades matching requests and hands the
// caller an Endpoint, enforcing the same role check as RegisterRoute.
func (r *Router) RegisterWebsocketRoute(path string, roles []Role, h WebsocketHandlerFunc) {
	r.mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		sess := r.resolveSession(w, req)
		if sess == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !sess.hasRole(roles) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			r.log.Warn("websocket upgrade failed", "error", err)
			return
		}
		ep := &Endpoint{conn: conn}
		defer ep.Close()
		h(ep, sess)
	})
}

// Broadcaster fans JSON messages out to every currently-connected
// websocket endpoint.
type Broadcaster struct {
	mu   sync.Mutex
	eps  map[*Endpoint]struct{}
	log  *slog.Logger
}

func NewBroadcaster(log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{eps: make(map[*Endpoint]struct{}), log: log}
}

func (b *Broadcaster) Register(ep *Endpoint) {
	b.mu.Lock()
	b.eps[ep] = struct{}{}
	b.mu.Unlock()
}

func (b *Broadcaster) Unregister(ep *Endpoint) {
	b.mu.Lock()
	delete(b.eps, ep)
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(msgType string, payload any) {
	msg := map[string]any{"type": msgType, "payload": payload}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ep := range b.eps {
		if err := ep.WriteJSON(msg); err != nil {
			ep.Close()
			delete(b.eps, ep)
		}
	}
}
