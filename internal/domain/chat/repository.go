package chat

import (
	"context"
	"time"

	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	"github.com/tarman-2563/CycleBay/internal/domain/user"
)

// ConversationRepository persists conversation threads.
type ConversationRepository interface {
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)

	// ByPair looks up the conversation for a (listing, buyer, seller) pair in
	// either orientation, or ErrConversationNotFound.
	ByPair(ctx context.Context, listingID catalog.ListingID, a, b user.ID) (*Conversation, error)

	// Create inserts the conversation under the pair uniqueness constraint.
	// When another writer got there first, the existing conversation is
	// returned instead of an error.
	Create(ctx context.Context, conversation *Conversation) (*Conversation, error)

	// ByParticipant lists conversations with userID as buyer or seller,
	// most recently active first.
	ByParticipant(ctx context.Context, userID user.ID) ([]*Conversation, error)

	// Touch updates the last-message pointer after a send. Deliberately a
	// second write separate from the message insert; the ledger stays the
	// source of truth if it is lost.
	Touch(ctx context.Context, id ConversationID, lastMessage MessageID, at time.Time) error
}

// MessageRepository is the append-only message ledger.
type MessageRepository interface {
	ByID(ctx context.Context, id MessageID) (*Message, error)
	Append(ctx context.Context, message *Message) error

	// Page returns one page of a conversation's history. Pages are cut
	// newest-first (page 1 holds the most recent messages) and each page's
	// contents come back in ascending chronological order.
	Page(ctx context.Context, conversationID ConversationID, page, pageSize int) ([]*Message, error)

	// ResolveOffer performs the pending→decision transition as a conditional
	// write and returns the updated message, or ErrOfferResolved when the
	// message was no longer pending.
	ResolveOffer(ctx context.Context, id MessageID, decision OfferStatus) (*Message, error)

	// MarkRead flags every unread message addressed to reader in the
	// conversation and returns how many changed. A no-op is a success.
	MarkRead(ctx context.Context, conversationID ConversationID, reader user.ID, at time.Time) (int64, error)

	// CountUnread counts unread messages addressed to userID across all
	// conversations.
	CountUnread(ctx context.Context, userID user.ID) (int64, error)
}
