package chat

import (
	"github.com/tarman-2563/CycleBay/internal/domain/chat"
	"github.com/tarman-2563/CycleBay/internal/domain/user"
)

// NewMessageEvent is pushed to the receiver's room after a successful send.
type NewMessageEvent struct {
	Message        *chat.Message       `json:"message"`
	ConversationID chat.ConversationID `json:"conversationId"`
	Sender         *user.Summary       `json:"sender"`
}

// OfferResponseEvent is pushed to the original offer sender's room after the
// recipient resolves the offer.
type OfferResponseEvent struct {
	MessageID   chat.MessageID   `json:"messageId"`
	Decision    chat.OfferStatus `json:"response"`
	OfferAmount int64            `json:"offerAmount"`
}

// TypingEvent is relayed to the conversation counterpart; it is never
// persisted.
type TypingEvent struct {
	ConversationID chat.ConversationID `json:"conversationId"`
	UserID         user.ID             `json:"userId"`
	IsTyping       bool                `json:"isTyping"`
}

// Broadcaster fans events out to a user's live connections. Delivery is
// best-effort and at-most-once: a user with no open connection simply misses
// the event and recovers durable state by re-fetching the ledger. The
// service receives its Broadcaster at construction so tests can pass a
// recording fake.
type Broadcaster interface {
	NewMessage(receiver user.ID, event NewMessageEvent)
	OfferResponse(receiver user.ID, event OfferResponseEvent)
	UserTyping(receiver user.ID, event TypingEvent)
}

// NopBroadcaster drops every event. Used when no realtime hub is wired.
type NopBroadcaster struct{}

func (NopBroadcaster) NewMessage(user.ID, NewMessageEvent)       {}
func (NopBroadcaster) OfferResponse(user.ID, OfferResponseEvent) {}
func (NopBroadcaster) UserTyping(user.ID, TypingEvent)           {}
