package dto

import (
	"time"

	chatsvc "github.com/tarman-2563/CycleBay/internal/app/services/chat"
	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	domainchat "github.com/tarman-2563/CycleBay/internal/domain/chat"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
)

// Envelope is the uniform response shape: {success, message?, error?, data?}.
// The error field carries the machine-readable failure kind; clients must
// never parse the human message.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ListingSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	Price int64  `json:"price"`
}

type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Conversation struct {
	ID           string          `json:"id"`
	Listing      *ListingSummary `json:"listing,omitempty"`
	Buyer        *UserSummary    `json:"buyer"`
	Seller       *UserSummary    `json:"seller"`
	Status       string          `json:"status"`
	LastMessage  *Message        `json:"lastMessage,omitempty"`
	LastActivity time.Time       `json:"lastActivity"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversationId"`
	ListingID      string       `json:"listingId"`
	SenderID       string       `json:"senderId"`
	Sender         *UserSummary `json:"sender,omitempty"`
	ReceiverID     string       `json:"receiverId"`
	MessageType    string       `json:"messageType"`
	Content        string       `json:"content"`
	OfferAmount    int64        `json:"offerAmount,omitempty"`
	OfferStatus    string       `json:"offerStatus,omitempty"`
	Attachments    []string     `json:"attachments,omitempty"`
	IsRead         bool         `json:"isRead"`
	ReadAt         *time.Time   `json:"readAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

type OfferResolution struct {
	Message       Message `json:"message"`
	SystemMessage Message `json:"systemMessage"`
}

type UnreadCount struct {
	UnreadCount int64 `json:"unreadCount"`
}

func NewConversation(view chatsvc.ConversationView) Conversation {
	conversation := Conversation{
		ID:           string(view.Conversation.ID),
		Listing:      newListingSummary(view.Listing),
		Buyer:        NewUserSummary(view.Buyer),
		Seller:       NewUserSummary(view.Seller),
		Status:       string(view.Conversation.Status),
		LastActivity: view.Conversation.LastActivity,
		CreatedAt:    view.Conversation.CreatedAt,
	}
	if view.LastMessage != nil {
		last := newMessage(view.LastMessage, nil)
		conversation.LastMessage = &last
	}
	return conversation
}

func NewMessage(view chatsvc.MessageView) Message {
	return newMessage(view.Message, view.Sender)
}

func NewOfferResolution(resolution chatsvc.OfferResolution) OfferResolution {
	return OfferResolution{
		Message:       NewMessage(resolution.Offer),
		SystemMessage: NewMessage(resolution.SystemMessage),
	}
}

func newMessage(message *domainchat.Message, sender *domainuser.Summary) Message {
	out := Message{
		ID:             string(message.ID),
		ConversationID: string(message.ConversationID),
		ListingID:      string(message.ListingID),
		SenderID:       string(message.SenderID),
		Sender:         NewUserSummary(sender),
		ReceiverID:     string(message.ReceiverID),
		MessageType:    string(message.Type),
		Content:        message.Content,
		OfferAmount:    message.OfferAmount,
		OfferStatus:    string(message.OfferStatus),
		Attachments:    append([]string(nil), message.Attachments...),
		IsRead:         message.IsRead,
		CreatedAt:      message.CreatedAt,
	}
	if !message.ReadAt.IsZero() {
		readAt := message.ReadAt
		out.ReadAt = &readAt
	}
	return out
}

// NewUserSummary converts a directory summary, passing nil through for
// callers that could not enrich the identity.
func NewUserSummary(summary *domainuser.Summary) *UserSummary {
	if summary == nil {
		return nil
	}
	return &UserSummary{
		ID:    string(summary.ID),
		Name:  summary.Name,
		Email: summary.Email,
	}
}

func newListingSummary(listing *catalog.Listing) *ListingSummary {
	if listing == nil {
		return nil
	}
	return &ListingSummary{
		ID:    string(listing.ID),
		Name:  listing.Name,
		Image: listing.Image,
		Price: listing.Price,
	}
}
