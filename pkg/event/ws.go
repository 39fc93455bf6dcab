package event

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mentiond/mentiond/pkg/utils"
)

// WSHandler upgrades dashboard connections and attaches them to the hub.
type WSHandler struct {
	hub      *Hub
	snapshot func() Snapshot
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a WebSocket handler. snapshot is called once per new
// connection to build the initial_data payload from the hot cache.
func NewWSHandler(hub *Hub, snapshot func() Snapshot) *WSHandler {
	return &WSHandler{
		hub:      hub,
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: utils.GetLogger(),
	}
}

// Handle is the Gin handler for WS /ws.
//
// Protocol: the server sends one initial_data snapshot, then a live stream
// of new_mention / stats_update / new_conversation events. Any text the
// client sends is echoed back; it exists only to keep intermediaries from
// timing out the socket and carries no application semantics.
func (h *WSHandler) Handle(c *gin.Context) {
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := newWSConn(raw)

	// The snapshot goes out before the hub can queue live events, so the
	// dashboard always sees initial_data first.
	if err := conn.WriteJSON(InitialDataMessage(h.snapshot())); err != nil {
		h.logger.Warn("failed to send initial snapshot", "error", err)
		_ = conn.Close()
		return
	}

	id := h.hub.Register(conn)
	defer func() {
		h.hub.Unregister(id)
		_ = conn.Close()
	}()

	// Reader loop: echoes client text and detects the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		raw.SetReadLimit(4096)
		for {
			msgType, data, err := raw.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.TextMessage {
				if err := conn.WriteText(data); err != nil {
					return
				}
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		}
	}
}

// wsConn serializes writes to one gorilla connection. Broadcasts arrive
// from ingestion goroutines concurrently with echo and ping writes, and a
// gorilla conn supports only one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (w *wsConn) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) WriteText(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
