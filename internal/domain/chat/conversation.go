package chat

import (
	"strings"
	"time"

	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	"github.com/tarman-2563/CycleBay/internal/domain/user"
)

type ConversationID string

type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationClosed    ConversationStatus = "closed"
	ConversationCompleted ConversationStatus = "completed"
)

// Conversation is the persistent thread between a listing's buyer and its
// seller. Buyer and seller are fixed for its lifetime; LastMessageID and
// LastActivity are a denormalized pointer to the newest ledger entry and may
// lag it — the message ledger is authoritative for history.
type Conversation struct {
	ID            ConversationID
	ListingID     catalog.ListingID
	BuyerID       user.ID
	SellerID      user.ID
	Status        ConversationStatus
	LastMessageID MessageID
	LastActivity  time.Time
	CreatedAt     time.Time
}

type CreateConversationParams struct {
	ID        ConversationID
	ListingID catalog.ListingID
	BuyerID   user.ID
	SellerID  user.ID
	Now       time.Time
}

func NewConversation(params CreateConversationParams) (*Conversation, error) {
	if strings.TrimSpace(string(params.ID)) == "" ||
		strings.TrimSpace(string(params.ListingID)) == "" ||
		strings.TrimSpace(string(params.BuyerID)) == "" ||
		strings.TrimSpace(string(params.SellerID)) == "" {
		return nil, ErrConversationIncomplete
	}
	if params.BuyerID == params.SellerID {
		return nil, ErrSelfConversation
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Conversation{
		ID:           params.ID,
		ListingID:    params.ListingID,
		BuyerID:      params.BuyerID,
		SellerID:     params.SellerID,
		Status:       ConversationActive,
		LastActivity: now,
		CreatedAt:    now,
	}, nil
}

// IsParticipant reports whether id is the buyer or the seller. Participants
// are the only identities authorized to act on the conversation.
func (c *Conversation) IsParticipant(id user.ID) bool {
	return id == c.BuyerID || id == c.SellerID
}

// Counterpart returns the other participant. It assumes id is a participant.
func (c *Conversation) Counterpart(id user.ID) user.ID {
	if id == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// PairKey returns the orientation-independent identity of the
// (listing, buyer, seller) pair. Storage enforces uniqueness on it so two
// concurrent first contacts cannot create duplicate threads.
func (c *Conversation) PairKey() string {
	return PairKey(c.ListingID, c.BuyerID, c.SellerID)
}

func PairKey(listingID catalog.ListingID, a, b user.ID) string {
	lo, hi := string(a), string(b)
	if lo > hi {
		lo, hi = hi, lo
	}
	return string(listingID) + "|" + lo + "|" + hi
}
