package push

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"core/models"

	authUtils "auth/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one live socket for a user. A user can hold several sessions
// (two tabs, phone + desktop); every envelope goes to all of them.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	username string
}

// Hub routes envelopes to users over their live websocket sessions. The
// routing identity comes from the bearer token presented at handshake.
// Delivery is fire-and-forget: there is no durable queue, a disconnected
// client misses events and resyncs over REST.
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes session registration; call it once in a goroutine
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.sessions[client.username] == nil {
				h.sessions[client.username] = make(map[*Client]bool)
			}
			h.sessions[client.username][client] = true
			h.mu.Unlock()
			log.Printf("push session opened for %s", client.username)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.sessions[client.username]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.sessions, client.username)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("push session closed for %s", client.username)
		}
	}
}

// HandleConnection upgrades GET /ws?token=<jwt>. The token subject's
// username becomes the routing identity for the life of the socket.
func (h *Hub) HandleConnection(c *gin.Context) {
	claims, err := authUtils.ParseToken(c.Query("token"))
	if err != nil || claims.Username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 64),
		username: strings.ToLower(claims.Username),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// SendInvite pushes on the invites queue
func (h *Hub) SendInvite(username string, event models.InviteEvent) {
	event.Queue = models.QueueInvites
	h.deliver(username, event)
}

// SendMatchUpdate pushes on the match-updates queue
func (h *Hub) SendMatchUpdate(username string, event models.MatchUpdateEvent) {
	event.Queue = models.QueueMatchUpdates
	h.deliver(username, event)
}

// SessionCount reports how many live sockets a user holds
func (h *Hub) SessionCount(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[strings.ToLower(username)])
}

func (h *Hub) deliver(username string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("dropping undeliverable event for %s: %v", username, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.sessions[strings.ToLower(username)] {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; the socket will be reaped by its pumps.
			log.Printf("send buffer full for %s, dropping event", username)
		}
	}
}

// readPump discards inbound frames and watches for the close
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				log.Printf("websocket error for %s: %v", c.username, err)
			}
			break
		}
	}
}

// writePump writes queued envelopes one frame each, preserving order, and
// keeps the connection alive with pings.
func (c *Client) writePump() {
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
