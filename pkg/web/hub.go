package web

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeWait is how long a websocket write may take.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before dropping a client.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// statsHub fans a snapshot payload out to every connected websocket
// client. One broadcast per push interval keeps the loop decoupled
// from slow consumers: a client that cannot keep up drops snapshots
// instead of blocking the hub.
type statsHub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}

	mu sync.RWMutex
	n  int
}

func newStatsHub() *statsHub {
	return &statsHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

// run owns the client set. Call in a goroutine; returns after stop.
func (h *statsHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.setCount(len(h.clients))
			}

		case payload := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// Client too slow: skip this snapshot for it.
				}
			}

		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.setCount(0)
			return
		}
	}
}

func (h *statsHub) stop() {
	close(h.done)
}

// publish hands a payload to the hub without blocking the caller.
func (h *statsHub) publish(payload []byte) {
	select {
	case h.broadcast <- payload:
	case <-h.done:
	default:
	}
}

func (h *statsHub) setCount(n int) {
	h.mu.Lock()
	h.n = n
	h.mu.Unlock()
}

// clientCount reports connected websocket subscribers.
func (h *statsHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.n
}

// wsClient is one websocket subscriber to the stats stream.
type wsClient struct {
	hub  *statsHub
	conn *websocket.Conn
	send chan []byte
}

// newWSClient registers a subscriber. It reports false when the hub
// has already stopped, so a late upgrade never blocks a handler.
func newWSClient(hub *statsHub, conn *websocket.Conn) (*wsClient, bool) {
	c := &wsClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 16),
	}
	select {
	case hub.register <- c:
		return c, true
	case <-hub.done:
		return nil, false
	}
}

// run pumps in both directions and blocks until the connection ends.
func (c *wsClient) run() {
	go c.writePump()
	c.readPump()
}

// readPump drains the connection so pongs are processed and
// disconnects are noticed. Clients never send meaningful data.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only goroutine writing to the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
