package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 512
	clientBuffer   = 256
)

// Hub maintains the set of active WebSocket clients and broadcasts events
// to them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	upgrader   websocket.Upgrader
	logger     logger.Logger
	count      atomic.Int64
	done       chan struct{}
	once       sync.Once
	wg         sync.WaitGroup
}

// client is a middleman between the websocket connection and the hub.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var _ Sink = (*Hub)(nil)

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, clientBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log.WithComponent("websocket"),
		done:   make(chan struct{}),
	}
}

func (*Hub) Name() string { return "websocket" }

func (h *Hub) Start(ctx context.Context) error {
	h.wg.Add(1)

	go h.run(ctx)

	return nil
}

// Stop disconnects every client and stops the broadcast loop.
func (h *Hub) Stop(context.Context) error {
	h.once.Do(func() { close(h.done) })
	h.wg.Wait()

	return nil
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Publish broadcasts the event envelope to every connected client.
func (h *Hub) Publish(ctx context.Context, event *models.Event) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %w", errMarshalEvent, err)
	}

	select {
	case <-h.done:
		return errHubNotRunning
	default:
	}

	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return errHubNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) run(ctx context.Context) {
	defer h.wg.Done()
	defer h.once.Do(func() { close(h.done) })
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case c := <-h.register:
			h.clients[c] = true
			h.count.Add(1)
		case c := <-h.unregister:
			h.drop(c)
		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.logger.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("Disconnecting slow client")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.count.Add(-1)
	}
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.drop(c)
	}
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to upgrade to websocket")

		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()

		return
	}

	h.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Client connected")

	go c.writePump()
	go c.readPump()
}

// readPump only tracks connection liveness; clients have nothing to say.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}

		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Msg("websocket read error")
			}

			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
