package server

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/session"
)

const (
	clientBuffer = 32
	writeWait    = 5 * time.Second
	maxMessage   = 512
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes session events to websocket clients. It implements session.Sink;
// confidence events are throttled, every other event is delivered. A client
// that cannot keep up loses messages rather than stalling the frame loop.
type Hub struct {
	limiter *rate.Limiter

	mu      sync.RWMutex
	clients map[*client]struct{}
	dropped atomic.Int64
}

// NewHub creates a Hub forwarding at most confidencePerSecond confidence
// events. A non-positive rate forwards all of them.
func NewHub(confidencePerSecond float64) *Hub {
	limit := rate.Inf
	if confidencePerSecond > 0 {
		limit = rate.Limit(confidencePerSecond)
	}
	return &Hub{
		limiter: rate.NewLimiter(limit, 1),
		clients: make(map[*client]struct{}),
	}
}

// Publish implements session.Sink.
func (h *Hub) Publish(e session.Event) {
	if e.Type == session.EventConfidence && !h.limiter.Allow() {
		return
	}

	msg, err := json.Marshal(e)
	if err != nil {
		logging.Error(logging.Fields{"event": e.Type, "error": err}, "failed to encode event")
		return
	}
	h.broadcast(msg)
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns how many messages were discarded for slow clients.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(logging.Fields{"error": err}, "websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.register(c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()

	h.readPump(c)
	h.unregister(c)
	<-done
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	logging.Debug(logging.Fields{"clients": len(h.clients)}, "event client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	logging.Debug(logging.Fields{"clients": len(h.clients)}, "event client disconnected")
}

// readPump discards client messages and returns when the connection closes.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessage)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// Closing the connection unblocks readPump.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.conn.Close()
	}
}
