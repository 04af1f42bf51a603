package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. A user may have several open tabs.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Message is pushed to every connection of UserID.
type Message struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// Hub fans notification messages out to connected clients. The client map
// is owned by the Run goroutine.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register/unregister/broadcast until ctx is done, then closes
// every client. It must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.Send)
				}
			}
			h.clients = map[string]map[*Client]struct{}{}
			return
		case client := <-h.register:
			set, ok := h.clients[client.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.UserID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.broadcast:
			payload, err := json.Marshal(message)
			if err != nil {
				continue
			}
			for c := range h.clients[message.UserID] {
				select {
				case c.Send <- payload:
				default:
					h.logger.Debug("dropping slow websocket client", zap.String("user_id", c.UserID))
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Send queues a message for userID. It never blocks the caller; when the
// queue is full the push is skipped since the notification is already
// stored.
func (h *Hub) Send(userID, content string) {
	select {
	case h.broadcast <- Message{UserID: userID, Content: content}:
	default:
		h.logger.Warn("notification hub queue full", zap.String("user_id", userID))
	}
}

// Serve upgrades the request and pumps messages for userID until the
// connection closes.
func (h *Hub) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{UserID: userID, Conn: conn, Send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}

	go h.writePump(client)
	h.readPump(ctx, client)
	return nil
}

// readPump discards inbound frames; it exists to notice closed sockets.
// Hijacked request contexts outlive server shutdown, so it also gives up
// once Run has returned.
func (h *Hub) readPump(ctx context.Context, c *Client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		case <-ctx.Done():
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
