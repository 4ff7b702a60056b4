package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// sendBuffer is the per-client queue of pending events. A client whose
// buffer is full is dropped rather than slowing publishers down.
const sendBuffer = 16

// writeTimeout bounds a single WebSocket write.
const writeTimeout = 2 * time.Second

// client is one connected observer. Each client has its own writer
// goroutine draining send, so a stalled connection never blocks
// Publish or the other clients.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Broadcaster fans engine events out to connected WebSocket clients.
// Publishing never blocks: events are queued per client, and clients
// that fall behind or error are dropped.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewBroadcaster creates a Broadcaster with no connected clients.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: slog.Default().With("component", "events"),
	}
}

// HandleWebSocket upgrades the request and registers the client until
// it disconnects.
func (b *Broadcaster) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := b.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	go b.writeLoop(c)

	// Drain client messages until the connection drops.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	b.remove(c)
}

// writeLoop delivers queued events to a single client.
func (b *Broadcaster) writeLoop(c *client) {
	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				b.logger.Debug("dropping event client", "error", err)
				b.remove(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// remove unregisters the client and closes its connection. Safe to
// call from any goroutine, more than once.
func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	registered := b.clients[c]
	delete(b.clients, c)
	b.mu.Unlock()

	if registered {
		close(c.done)
		c.conn.Close()
	}
}

// Publish queues the event for all connected clients. Implements
// Publisher. Clients whose queue is full are dropped.
func (b *Broadcaster) Publish(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			b.logger.Debug("dropping slow event client")
			b.remove(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
