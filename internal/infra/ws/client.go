package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	domainchat "github.com/tarman-2563/CycleBay/internal/domain/chat"
	"github.com/tarman-2563/CycleBay/internal/domain/user"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from a separate origin; the bearer
		// credential on the upgrade request is the access control.
		return true
	},
}

// Client is one live connection inside a user's room.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID user.ID
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type typingFrame struct {
	ConversationID domainchat.ConversationID `json:"conversationId"`
	IsTyping       bool                      `json:"isTyping"`
}

// Serve upgrades the request and admits the connection to userID's room.
// userID must already be verified by the caller; the socket itself never
// gets to pick an identity.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID user.ID) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.SendBuffer),
		userID: userID,
	}
	h.register <- client
	go client.writePump()
	go client.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log().Debug("ws read failed", "user_id", c.userID, "error", err)
			}
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		switch frame.Event {
		case "typing":
			if c.hub.Typing == nil {
				continue
			}
			var typing typingFrame
			if err := json.Unmarshal(frame.Data, &typing); err != nil {
				continue
			}
			// The upgrade request's context dies with the HTTP handler, so
			// relays run on a background context.
			if err := c.hub.Typing(context.Background(), typing.ConversationID, c.userID, typing.IsTyping); err != nil {
				c.hub.log().Debug("typing relay rejected", "user_id", c.userID, "conversation_id", typing.ConversationID, "error", err)
			}
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
