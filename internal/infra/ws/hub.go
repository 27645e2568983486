package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/tarman-2563/CycleBay/internal/app/dto"
	chatsvc "github.com/tarman-2563/CycleBay/internal/app/services/chat"
	domainchat "github.com/tarman-2563/CycleBay/internal/domain/chat"
	"github.com/tarman-2563/CycleBay/internal/domain/user"
)

const (
	EventNewMessage    = "newMessage"
	EventOfferResponse = "offerResponse"
	EventUserTyping    = "userTyping"
)

// envelope is the wire frame for every server→client event.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// newMessagePayload renders messages in the same camelCase shape the REST
// surface uses, so clients decode one message schema.
type newMessagePayload struct {
	Message        dto.Message      `json:"message"`
	ConversationID string           `json:"conversationId"`
	Sender         *dto.UserSummary `json:"sender,omitempty"`
}

type delivery struct {
	userID  user.ID
	payload []byte
}

// TypingHandler relays a client typing indicator. The hub delegates the
// participant check and the fan-out to the chat service.
type TypingHandler func(ctx context.Context, conversationID domainchat.ConversationID, userID user.ID, isTyping bool) error

// Hub maintains one logical room per user identity and fans events out to
// every live connection in the room. Delivery is best-effort, at-most-once:
// no connection means the event is dropped, and a slow client loses its
// connection rather than blocking the hub. Connections only enter a room
// through an authenticated upgrade; the hub never accepts a client-asserted
// identity.
type Hub struct {
	Logger     *slog.Logger
	SendBuffer int
	Typing     TypingHandler

	mu         sync.RWMutex
	rooms      map[user.ID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliveries chan delivery
}

func NewHub(logger *slog.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		Logger:     logger,
		SendBuffer: sendBuffer,
		rooms:      make(map[user.ID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, sendBuffer),
	}
}

// Run owns room membership until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.userID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[client.userID] = room
			}
			room[client] = struct{}{}
			h.mu.Unlock()
			h.log().Debug("ws client joined", "user_id", client.userID)
		case client := <-h.unregister:
			h.drop(client)
		case d := <-h.deliveries:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.rooms[d.userID]))
			for client := range h.rooms[d.userID] {
				clients = append(clients, client)
			}
			h.mu.RUnlock()
			for _, client := range clients {
				select {
				case client.send <- d.payload:
				default:
					// Slow consumer: cut it loose, it can reconnect and
					// re-fetch from the ledger.
					h.drop(client)
				}
			}
		}
	}
}

// NewMessage implements chatsvc.Broadcaster.
func (h *Hub) NewMessage(receiver user.ID, event chatsvc.NewMessageEvent) {
	h.push(receiver, EventNewMessage, newMessagePayload{
		Message:        dto.NewMessage(chatsvc.MessageView{Message: event.Message, Sender: event.Sender}),
		ConversationID: string(event.ConversationID),
		Sender:         dto.NewUserSummary(event.Sender),
	})
}

// OfferResponse implements chatsvc.Broadcaster.
func (h *Hub) OfferResponse(receiver user.ID, event chatsvc.OfferResponseEvent) {
	h.push(receiver, EventOfferResponse, event)
}

// UserTyping implements chatsvc.Broadcaster.
func (h *Hub) UserTyping(receiver user.ID, event chatsvc.TypingEvent) {
	h.push(receiver, EventUserTyping, event)
}

func (h *Hub) push(receiver user.ID, event string, data any) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		h.log().Warn("ws event encode failed", "event", event, "error", err)
		return
	}
	select {
	case h.deliveries <- delivery{userID: receiver, payload: payload}:
	default:
		h.log().Warn("ws delivery queue full, event dropped", "event", event, "user_id", receiver)
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[client.userID]
	if !ok {
		return
	}
	if _, member := room[client]; !member {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.userID)
	}
	close(client.send)
	h.log().Debug("ws client left", "user_id", client.userID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, room := range h.rooms {
		for client := range room {
			close(client.send)
		}
		delete(h.rooms, userID)
	}
}

// Connected reports whether the user has at least one live connection.
func (h *Hub) Connected(userID user.ID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID]) > 0
}

func (h *Hub) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ chatsvc.Broadcaster = (*Hub)(nil)
