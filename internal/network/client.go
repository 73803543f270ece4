package network

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 1024
	// Minimum gap between actions from one connection.
	actionCooldown = time.Second
)

// Client represents an active WebSocket connection bound to one profile.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	profileID      string
	lastActionTime time.Time
}

// NewClient creates a WebSocket client for a profile.
func NewClient(hub *Hub, conn *websocket.Conn, profileID string, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		profileID: profileID,
	}
}

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type    string          `json:"type"` // "SYNC", "DISPATCH", "SET_AUTOMATION", "SET_POLICIES"
	Payload json.RawMessage `json:"payload"`
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// ReadPump pumps messages from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket read error for %s: %v", c.profileID, err)
				c.hub.metrics.RecordWSError()
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Error("Failed to parse PlayerAction from %s: %v", c.profileID, err)
			continue
		}

		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) {
	if time.Since(c.lastActionTime) < actionCooldown {
		c.hub.logger.Warn("Rate limit exceeded for profile %s action %s", c.profileID, action.Type)
		return
	}
	c.lastActionTime = time.Now()

	ctx := context.Background()
	eng := c.hub.engine

	switch action.Type {
	case "SYNC":
		report, err := eng.ProcessCatchup(ctx, c.profileID)
		if err != nil {
			c.hub.logger.Warn("SYNC for %s failed: %v", c.profileID, err)
			return
		}
		c.reply("SYNC_RESULT", report)

	case "DISPATCH":
		var parsed struct {
			MissionID string `json:"mission_id"`
		}
		if err := json.Unmarshal(action.Payload, &parsed); err != nil {
			c.hub.logger.Warn("Failed to parse dispatch payload from %s", c.profileID)
			return
		}
		result, err := eng.ManualDispatch(ctx, c.profileID, parsed.MissionID)
		if err != nil {
			c.replyError("DISPATCH", err)
			return
		}
		c.reply("DISPATCH_RESULT", result)
		c.hub.logger.Event("PLAYER_DISPATCH", c.profileID, "mission "+parsed.MissionID)

	case "SET_AUTOMATION":
		var parsed struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.Unmarshal(action.Payload, &parsed); err != nil {
			return
		}
		if err := eng.SetAutomation(ctx, c.profileID, parsed.Enabled); err != nil {
			c.replyError("SET_AUTOMATION", err)
		}

	case "SET_POLICIES":
		var parsed struct {
			PolicyIDs []string `json:"policy_ids"`
		}
		if err := json.Unmarshal(action.Payload, &parsed); err != nil {
			return
		}
		if err := eng.SetPolicies(ctx, c.profileID, parsed.PolicyIDs); err != nil {
			c.replyError("SET_POLICIES", err)
		}

	default:
		c.hub.logger.Warn("Unknown PlayerAction type: %s", action.Type)
	}
}

// reply sends a direct response to this client only.
func (c *Client) reply(msgType string, payload interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"type":    msgType,
		"payload": payload,
	})
	if err != nil {
		c.hub.logger.Error("Failed to serialize %s reply: %v", msgType, err)
		return
	}
	select {
	case c.send <- msg:
		c.hub.metrics.RecordWSMessage(false)
	default:
	}
}

func (c *Client) replyError(actionType string, err error) {
	c.reply("ERROR", map[string]string{
		"action": actionType,
		"error":  err.Error(),
	})
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
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
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

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
