// Package gateway is the real-time access path: a websocket endpoint that
// forwards a room's pubsub notifications to every connected participant.
// Delivery is best-effort; clients reconcile through the polling façade.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/playq/triviaroom/internal/api"
	"github.com/playq/triviaroom/internal/errors"
	"github.com/playq/triviaroom/internal/session"
)

const (
	writeTimeout  = 10 * time.Second
	pingInterval  = 30 * time.Second
	sendQueueSize = 64
)

type Config struct {
	Router       gin.IRouter
	Session      *session.Service
	Redis        redis.UniversalClient
	PubsubPrefix string
}

type Gateway struct {
	session *session.Service
	redis   redis.UniversalClient
	prefix  string

	upgrader websocket.Upgrader

	mu   sync.Mutex
	hubs map[string]*roomHub
}

func New(c Config) *Gateway {
	g := &Gateway{
		session: c.Session,
		redis:   c.Redis,
		prefix:  c.PubsubPrefix,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		hubs: make(map[string]*roomHub),
	}

	c.Router.GET("/v1/rooms/:code/ws", g.Serve)

	return g
}

// Serve upgrades a participant's connection and attaches it to the room's
// notification stream. Membership is checked before the upgrade.
func (g *Gateway) Serve(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		userID = c.Query("userId")
	}

	r, err := g.session.GetRoom(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		e := errors.Convert(err)
		c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "gateway: upgrade failed", "error", err)
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}

	hub := g.attach(r.RoomID, cl)

	go cl.writePump()
	go func() {
		defer g.detach(r.RoomID, hub, cl)
		cl.readPump()
	}()
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// writePump drains the send queue onto the socket. A slow client that fills
// its queue gets messages dropped at enqueue time, never blocking the hub.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; clients act through the façade, not the
// socket. Returning unblocks detach on close or error.
func (c *client) readPump() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

type roomHub struct {
	mu      sync.Mutex
	clients map[string]*client
	sub     *redis.PubSub
	cancel  context.CancelFunc
}

func (g *Gateway) attach(roomID string, cl *client) *roomHub {
	g.mu.Lock()
	defer g.mu.Unlock()

	hub, ok := g.hubs[roomID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		hub = &roomHub{
			clients: make(map[string]*client),
			sub:     g.redis.Subscribe(ctx, api.RoomChannel(g.prefix, roomID)),
			cancel:  cancel,
		}
		g.hubs[roomID] = hub
		go hub.forward(ctx, roomID)
	}

	hub.mu.Lock()
	hub.clients[cl.id] = cl
	hub.mu.Unlock()

	return hub
}

func (g *Gateway) detach(roomID string, hub *roomHub, cl *client) {
	hub.mu.Lock()
	delete(hub.clients, cl.id)
	empty := len(hub.clients) == 0
	hub.mu.Unlock()

	close(cl.send)

	if !empty {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Re-check under the gateway lock: a client may have attached meanwhile.
	hub.mu.Lock()
	empty = len(hub.clients) == 0
	hub.mu.Unlock()
	if empty && g.hubs[roomID] == hub {
		delete(g.hubs, roomID)
		hub.cancel()
		hub.sub.Close()
	}
}

// forward relays each pubsub notification to every attached client.
func (h *roomHub) forward(ctx context.Context, roomID string) {
	ch := h.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			h.mu.Lock()
			for _, cl := range h.clients {
				select {
				case cl.send <- []byte(msg.Payload):
				default:
					slog.Warn("gateway: dropping message for slow client",
						"room", roomID,
						"client", cl.id,
					)
				}
			}
			h.mu.Unlock()
		}
	}
}
