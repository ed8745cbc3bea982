package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"clinichat/entity"
	"clinichat/internal/lib/sl"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	// Large enough for a base64-encoded upload plus envelope.
	maxMessageSize = 16 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a single authenticated WebSocket connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity entity.UserAuth
	log      *slog.Logger
}

// Identity returns the claims attached at handshake time.
func (c *Client) Identity() entity.UserAuth {
	return c.identity
}

// SendEvent queues an event for delivery. If the client's buffer is full
// the event is dropped; persisted rows remain the source of truth for
// catch-up.
func (c *Client) SendEvent(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		c.log.Error("failed to marshal event", slog.String("type", event.Type), sl.Err(err))
		return
	}

	select {
	case c.send <- data:
	default:
		c.log.Warn("send buffer full, dropping event",
			slog.String("type", event.Type),
			slog.String("user_id", c.identity.UserID),
		)
	}
}

// readPump reads frames from the connection and dispatches them in order.
// Events from one connection are handled to completion sequentially.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		if c.hub.handler != nil {
			c.hub.handler.HandleDisconnect(c)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.hub.HandleClientMessage(c, raw)
	}
}

// writePump drains the send buffer to the connection and keeps the
// transport alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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

// Authenticator validates a bearer token and returns the identity it
// carries.
type Authenticator interface {
	AuthenticateByToken(token string) (*entity.UserAuth, error)
}

// ServeWs authenticates and upgrades a WebSocket request. A missing or
// invalid token refuses the connection before any event handler runs; on
// success the client is registered with the hub and acknowledged with a
// connected event.
func ServeWs(hub *Hub, auth Authenticator, log *slog.Logger, w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	identity, err := auth.AuthenticateByToken(token)
	if err != nil {
		log.Warn("websocket auth failed", sl.Err(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		identity: *identity,
		log:      log.With(sl.Module("ws.client")),
	}

	hub.Register(client)

	go client.writePump()
	go client.readPump()

	client.SendEvent(Connected(identity.UserID, identity.TenantID))
}
