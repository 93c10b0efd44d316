package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Client represents a connected WebSocket client
type Client struct {
	conn        *websocket.Conn
	userID      string
	displayName string
	matchID     string // room the connection is attached to, "" until create/join
	send        chan []byte
}

// Hub maintains the set of active clients and their match rooms
type Hub struct {
	clients    map[string]*Client            // userID -> Client
	matchRooms map[string]map[string]*Client // matchID -> userID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		matchRooms: make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// BroadcastToMatch sends a message to every connection in a match room
func (h *Hub) BroadcastToMatch(matchID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.matchRooms[matchID]; exists {
		for _, client := range room {
			select {
			case client.send <- data:
			default:
				// Client's buffer is full
				log.Printf("Client send buffer full for user %s in match %s, dropping message", client.userID, matchID)
			}
		}
	}
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[userID]; exists {
		select {
		case client.send <- data:
			// sent
		default:
			log.Printf("[WS] SendToUser dropped message for user %s (buffer full)", userID)
		}
	} else {
		log.Printf("[WS] SendToUser no client for user %s", userID)
	}
}

// joinRoom attaches a client to a match room, detaching it from any previous one
func (h *Hub) joinRoom(c *Client, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.matchID != "" && c.matchID != matchID {
		if room, exists := h.matchRooms[c.matchID]; exists {
			delete(room, c.userID)
			if len(room) == 0 {
				delete(h.matchRooms, c.matchID)
			}
		}
	}

	c.matchID = matchID
	if _, exists := h.matchRooms[matchID]; !exists {
		h.matchRooms[matchID] = make(map[string]*Client)
	}
	h.matchRooms[matchID][c.userID] = c
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed — connection is being replaced or cleaned up.
				// Best-effort close frame; ignore errors (conn may already be closed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error for user %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("WebSocket ping error for user %s: %v", c.userID, err)
				return
			}
		}
	}
}

// sendError reports a rejection to the originating connection only
func (c *Client) sendError(reason string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": reason,
	})
	select {
	case c.send <- data:
	default:
	}
}
