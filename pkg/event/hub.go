package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mentiond/mentiond/pkg/utils"
)

// Conn is the write side of one subscriber connection.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// sendBuffer is the per-connection event backlog. A subscriber that falls
// this far behind starts losing events instead of slowing anyone else down.
const sendBuffer = 64

// subscriber pairs a connection with its outbound queue. A dedicated writer
// goroutine drains the queue, so socket writes never run on the goroutine
// that called Broadcast.
type subscriber struct {
	conn Conn
	send chan Message
}

// Hub maintains the set of live dashboard connections and fans every
// accepted event out to all of them. One broken or slow dashboard must
// never affect the producers or the other dashboards: each connection gets
// its own bounded queue and writer, a full queue drops the event for that
// connection only, and a failed write removes only that connection.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]*subscriber
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]*subscriber),
		logger: utils.GetLogger(),
	}
}

// Register adds a connection to the broadcast set, starts its writer, and
// returns its id.
func (h *Hub) Register(c Conn) string {
	id := uuid.NewString()
	sub := &subscriber{conn: c, send: make(chan Message, sendBuffer)}
	h.mu.Lock()
	h.subs[id] = sub
	total := len(h.subs)
	h.mu.Unlock()
	go h.writeLoop(id, sub)
	h.logger.Info("dashboard connected", "total", total)
	return id
}

// Unregister removes a connection and stops its writer. Safe to call for
// ids already removed by a failed send.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		// Closed under the same lock Broadcast sends under, so a send on a
		// closed channel is impossible.
		close(sub.send)
	}
	total := len(h.subs)
	h.mu.Unlock()
	if ok {
		h.logger.Info("dashboard disconnected", "total", total)
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast queues msg for every live connection and returns without
// waiting on any socket write. A subscriber whose queue is full misses
// this event; the connection itself stays registered.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub.send <- msg:
		default:
			h.logger.Warn("subscriber queue full, dropping event", "type", msg.Type)
		}
	}
}

// writeLoop drains one subscriber's queue until its channel is closed by
// Unregister or a write fails. A failed write prunes and closes only this
// connection.
func (h *Hub) writeLoop(id string, sub *subscriber) {
	for msg := range sub.send {
		if err := sub.conn.WriteJSON(msg); err != nil {
			h.logger.Warn("subscriber write failed, dropping connection", "error", err)
			h.Unregister(id)
			_ = sub.conn.Close()
			return
		}
	}
}
