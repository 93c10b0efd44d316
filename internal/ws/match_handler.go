package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/playgauntlet/backend/internal/auth"
	"github.com/playgauntlet/backend/internal/config"
	"github.com/playgauntlet/backend/internal/match"
)

// MatchHub is the single hub for all matches.
var MatchHub *Hub

var matchRegistry *match.Registry

func init() {
	MatchHub = NewHub()
	go runMatchHub(MatchHub)
}

// SetRegistry wires the match registry into the WS layer
func SetRegistry(r *match.Registry) {
	matchRegistry = r
}

// HandleMatchWebSocket authenticates the handshake and upgrades the
// connection. All match events for this user flow through the resulting
// client.
func HandleMatchWebSocket(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}

		claims, err := auth.Parse(cfg.JWTSecret, tokenString)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			conn:        conn,
			userID:      claims.UserID,
			displayName: claims.DisplayName,
			send:        make(chan []byte, 256),
		}

		MatchHub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// runMatchHub handles client registration and cleanup
func runMatchHub(h *Hub) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if oldClient, exists := h.clients[client.userID]; exists {
				log.Printf("[WS] User %s reconnecting - closing old connection", client.userID)
				if err := oldClient.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"), time.Now().Add(5*time.Second)); err != nil {
					log.Printf("Error writing close control to old client %s: %v", oldClient.userID, err)
				}
				oldClient.conn.Close()
				select {
				case <-oldClient.send:
				default:
					close(oldClient.send)
				}
				delete(h.clients, client.userID)
				if room, exists := h.matchRooms[oldClient.matchID]; exists {
					delete(room, client.userID)
				}
				client.matchID = oldClient.matchID
			}

			h.clients[client.userID] = client
			if client.matchID != "" {
				if _, exists := h.matchRooms[client.matchID]; !exists {
					h.matchRooms[client.matchID] = make(map[string]*Client)
				}
				h.matchRooms[client.matchID][client.userID] = client
			}
			h.mu.Unlock()

			log.Printf("[WS] User %s connected", client.userID)

			if client.matchID != "" && matchRegistry != nil {
				if rt, ok := matchRegistry.Resident(client.matchID); ok {
					rt.SetConnected(client.userID, true)
					MatchHub.BroadcastToMatch(client.matchID, map[string]interface{}{
						"type":    "player_connected",
						"payload": map[string]interface{}{"user_id": client.userID},
					})
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.userID]; ok && cur == client {
				delete(h.clients, client.userID)
				if room, exists := h.matchRooms[client.matchID]; exists {
					delete(room, client.userID)
					if len(room) == 0 {
						delete(h.matchRooms, client.matchID)
					}
				}
				select {
				case <-client.send:
				default:
					close(client.send)
				}
			}
			h.mu.Unlock()

			log.Printf("[WS] User %s disconnected", client.userID)

			if client.matchID != "" && matchRegistry != nil {
				if rt, ok := matchRegistry.Resident(client.matchID); ok {
					rt.SetConnected(client.userID, false)
					MatchHub.BroadcastToMatch(client.matchID, map[string]interface{}{
						"type":    "player_disconnected",
						"payload": map[string]interface{}{"user_id": client.userID},
					})
				}
			}
		}
	}
}

// readPump reads inbound envelopes and dispatches them to the match core
func (c *Client) readPump() {
	defer func() {
		MatchHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (unexpected) for user %s: %v", c.userID, err)
			} else {
				log.Printf("WebSocket read error for user %s: %v", c.userID, err)
			}
			break
		}

		var env match.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.sendError("invalid message")
			continue
		}

		c.handleEnvelope(env)
	}
}

// handleEnvelope routes one inbound event through the registry to the single
// authoritative runtime for its match.
func (c *Client) handleEnvelope(env match.Envelope) {
	if matchRegistry == nil {
		c.sendError("server not ready")
		return
	}
	if err := env.Validate(); err != nil {
		c.sendError(err.Error())
		return
	}

	if env.Type == match.EventCreateMatch {
		var data match.CreateMatchData
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				c.sendError(match.ErrMalformedEvent.Error())
				return
			}
		}
		name := data.DisplayName
		if name == "" {
			name = c.displayName
		}
		rt, notes, err := matchRegistry.Create(data.Mode, c.userID, name)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		MatchHub.joinRoom(c, rt.MatchID())
		deliver(rt.MatchID(), notes)
		MatchHub.SendToUser(c.userID, map[string]interface{}{
			"type":    "match_state",
			"payload": rt.StateView(c.userID),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	rt, err := matchRegistry.Get(ctx, env.MatchID)
	cancel()
	if err != nil {
		if errors.Is(err, match.ErrMatchNotFound) {
			c.sendError(err.Error())
		} else {
			log.Printf("[WS] recover match %s failed: %v", env.MatchID, err)
			c.sendError("match unavailable")
		}
		return
	}

	notes, err := rt.HandleEvent(c.userID, env)
	if err != nil {
		// Rejections go to the originating connection only
		c.sendError(err.Error())
	}
	if env.Type == match.EventJoinMatch && err == nil {
		MatchHub.joinRoom(c, env.MatchID)
		rt.SetConnected(c.userID, true)
	}
	deliver(env.MatchID, notes)
}

// deliver fans out notifications: personalized ones go straight to the user,
// broadcasts go through Redis pub/sub so every instance's room sees them.
func deliver(matchID string, notes []match.Notification) {
	for _, n := range notes {
		msg := map[string]interface{}{"type": n.Type, "payload": n.Payload}
		if n.To != "" {
			MatchHub.SendToUser(n.To, msg)
			continue
		}
		if !publishMatchEvent(matchID, n) {
			MatchHub.BroadcastToMatch(matchID, msg)
		}
	}
}
