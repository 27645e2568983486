package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	"github.com/tarman-2563/CycleBay/internal/domain/chat"
	"github.com/tarman-2563/CycleBay/internal/domain/user"
)

const DefaultPageSize = 50

// Service implements the messaging core: conversation directory, message
// ledger, offer negotiation and read tracking. The broadcaster and event
// publisher are explicit capabilities so the service can run with a no-op or
// recording implementation.
type Service struct {
	Conversations chat.ConversationRepository
	Messages      chat.MessageRepository
	Listings      catalog.Directory
	Users         user.Directory
	Broadcaster   Broadcaster
	Events        EventPublisher
	Logger        *slog.Logger
	Now           func() time.Time
}

// ConversationView is a conversation enriched for display.
type ConversationView struct {
	Conversation *chat.Conversation
	Listing      *catalog.Listing
	Buyer        *user.Summary
	Seller       *user.Summary
	LastMessage  *chat.Message
}

// MessageView pairs a message with its sender's display summary.
type MessageView struct {
	Message *chat.Message
	Sender  *user.Summary
}

// OfferResolution carries both ledger entries produced by an offer response.
type OfferResolution struct {
	Offer         MessageView
	SystemMessage MessageView
}

type SendMessageParams struct {
	ConversationID chat.ConversationID
	SenderID       user.ID
	Type           chat.MessageType
	Content        string
	OfferAmount    int64
	Attachments    []string
}

// GetOrCreateConversation resolves the single conversation between buyerID
// and the listing's owner, creating it on first contact. The seller is
// derived from the listing record; a caller-supplied seller identity is
// never accepted.
func (s *Service) GetOrCreateConversation(ctx context.Context, listingID catalog.ListingID, buyerID user.ID) (*ConversationView, error) {
	listing, err := s.Listings.ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID == buyerID {
		return nil, chat.ErrSelfConversation
	}

	conversation, err := s.Conversations.ByPair(ctx, listingID, buyerID, listing.OwnerID)
	if err != nil {
		if !errors.Is(err, chat.ErrConversationNotFound) {
			return nil, err
		}
		fresh, err := chat.NewConversation(chat.CreateConversationParams{
			ID:        chat.ConversationID(uuid.NewString()),
			ListingID: listingID,
			BuyerID:   buyerID,
			SellerID:  listing.OwnerID,
			Now:       s.now(),
		})
		if err != nil {
			return nil, err
		}
		// Create returns the winner's row when a concurrent first contact
		// beat us to the unique pair key.
		conversation, err = s.Conversations.Create(ctx, fresh)
		if err != nil {
			return nil, err
		}
		s.log().Info("conversation created", "conversation_id", conversation.ID, "listing_id", listingID, "buyer_id", buyerID, "seller_id", listing.OwnerID)
	}
	return s.conversationView(ctx, conversation, listing), nil
}

// ListConversations returns every conversation userID participates in,
// enriched and ordered by last activity descending.
func (s *Service) ListConversations(ctx context.Context, userID user.ID) ([]ConversationView, error) {
	conversations, err := s.Conversations.ByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]ConversationView, 0, len(conversations))
	for _, conversation := range conversations {
		views = append(views, *s.conversationView(ctx, conversation, nil))
	}
	return views, nil
}

// SendMessage appends a message to the conversation ledger. The receiver is
// always the sender's counterpart. On success the conversation's
// last-message pointer is refreshed (best effort) and the receiver's room is
// notified.
func (s *Service) SendMessage(ctx context.Context, params SendMessageParams) (*MessageView, error) {
	conversation, err := s.Conversations.ByID(ctx, params.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.IsParticipant(params.SenderID) {
		return nil, chat.ErrNotParticipant
	}

	message, err := chat.NewMessage(chat.CreateMessageParams{
		ID:             chat.MessageID(uuid.NewString()),
		ConversationID: conversation.ID,
		ListingID:      conversation.ListingID,
		SenderID:       params.SenderID,
		ReceiverID:     conversation.Counterpart(params.SenderID),
		Type:           params.Type,
		Content:        params.Content,
		OfferAmount:    params.OfferAmount,
		Attachments:    params.Attachments,
		Now:            s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Messages.Append(ctx, message); err != nil {
		return nil, err
	}
	if err := s.Conversations.Touch(ctx, conversation.ID, message.ID, message.CreatedAt); err != nil {
		// The ledger is authoritative; a stale pointer only degrades list
		// previews.
		s.log().Warn("conversation touch failed", "conversation_id", conversation.ID, "error", err)
	}

	sender := s.summary(ctx, message.SenderID)
	s.broadcaster().NewMessage(message.ReceiverID, NewMessageEvent{
		Message:        message,
		ConversationID: conversation.ID,
		Sender:         sender,
	})
	s.events().MessageSent(ctx, message)
	return &MessageView{Message: message, Sender: sender}, nil
}

// GetMessages returns one page of conversation history. Pages are cut
// newest-first and returned in ascending order within the page, so page 1 is
// the most recent pageSize messages, oldest of them first.
func (s *Service) GetMessages(ctx context.Context, conversationID chat.ConversationID, callerID user.ID, page, pageSize int) ([]MessageView, error) {
	conversation, err := s.Conversations.ByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.IsParticipant(callerID) {
		return nil, chat.ErrNotParticipant
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	messages, err := s.Messages.Page(ctx, conversationID, page, pageSize)
	if err != nil {
		return nil, err
	}
	views := make([]MessageView, 0, len(messages))
	for _, message := range messages {
		views = append(views, MessageView{Message: message, Sender: s.summary(ctx, message.SenderID)})
	}
	return views, nil
}

// RespondToOffer resolves a pending offer. Only the offer's receiver may
// respond, and only once: the status transition is a conditional write, so
// the loser of a concurrent double-response gets chat.ErrOfferResolved. A
// system message recording the outcome is appended and returned alongside
// the updated offer.
func (s *Service) RespondToOffer(ctx context.Context, messageID chat.MessageID, responderID user.ID, decision chat.OfferStatus) (*OfferResolution, error) {
	offer, err := s.Messages.ByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := offer.CheckRespondable(responderID, decision); err != nil {
		return nil, err
	}
	offer, err = s.Messages.ResolveOffer(ctx, messageID, decision)
	if err != nil {
		return nil, err
	}

	systemMessage, err := chat.NewMessage(chat.CreateMessageParams{
		ID:             chat.MessageID(uuid.NewString()),
		ConversationID: offer.ConversationID,
		ListingID:      offer.ListingID,
		SenderID:       responderID,
		ReceiverID:     offer.SenderID,
		Type:           chat.MessageSystem,
		Content:        fmt.Sprintf("Offer of ₹%d was %s", offer.OfferAmount, decision),
		Now:            s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Messages.Append(ctx, systemMessage); err != nil {
		return nil, err
	}
	if err := s.Conversations.Touch(ctx, offer.ConversationID, systemMessage.ID, systemMessage.CreatedAt); err != nil {
		s.log().Warn("conversation touch failed", "conversation_id", offer.ConversationID, "error", err)
	}

	s.log().Info("offer resolved", "message_id", offer.ID, "decision", decision, "amount", offer.OfferAmount)
	s.broadcaster().OfferResponse(offer.SenderID, OfferResponseEvent{
		MessageID:   offer.ID,
		Decision:    decision,
		OfferAmount: offer.OfferAmount,
	})
	s.events().OfferResolved(ctx, offer, systemMessage)
	return &OfferResolution{
		Offer:         MessageView{Message: offer, Sender: s.summary(ctx, offer.SenderID)},
		SystemMessage: MessageView{Message: systemMessage, Sender: s.summary(ctx, responderID)},
	}, nil
}

// MarkRead flags every unread message addressed to userID in the
// conversation. Re-invoking with nothing unread is a no-op success.
func (s *Service) MarkRead(ctx context.Context, conversationID chat.ConversationID, userID user.ID) error {
	conversation, err := s.Conversations.ByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.IsParticipant(userID) {
		return chat.ErrNotParticipant
	}
	_, err = s.Messages.MarkRead(ctx, conversationID, userID, s.now())
	return err
}

// UnreadCount is the user's global badge count across all conversations.
func (s *Service) UnreadCount(ctx context.Context, userID user.ID) (int64, error) {
	return s.Messages.CountUnread(ctx, userID)
}

// Typing relays a typing indicator to the conversation counterpart. Nothing
// is persisted; the only check is conversation membership.
func (s *Service) Typing(ctx context.Context, conversationID chat.ConversationID, userID user.ID, isTyping bool) error {
	conversation, err := s.Conversations.ByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.IsParticipant(userID) {
		return chat.ErrNotParticipant
	}
	s.broadcaster().UserTyping(conversation.Counterpart(userID), TypingEvent{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
	})
	return nil
}

func (s *Service) conversationView(ctx context.Context, conversation *chat.Conversation, listing *catalog.Listing) *ConversationView {
	view := &ConversationView{
		Conversation: conversation,
		Listing:      listing,
		Buyer:        s.summary(ctx, conversation.BuyerID),
		Seller:       s.summary(ctx, conversation.SellerID),
	}
	if view.Listing == nil {
		resolved, err := s.Listings.ByID(ctx, conversation.ListingID)
		if err != nil {
			s.log().Warn("listing enrichment failed", "listing_id", conversation.ListingID, "error", err)
		} else {
			view.Listing = resolved
		}
	}
	if conversation.LastMessageID != "" {
		last, err := s.Messages.ByID(ctx, conversation.LastMessageID)
		if err != nil {
			s.log().Warn("last message enrichment failed", "message_id", conversation.LastMessageID, "error", err)
		} else {
			view.LastMessage = last
		}
	}
	return view
}

// summary degrades to an id-only stub when the identity directory cannot
// resolve the user; display enrichment never fails an operation.
func (s *Service) summary(ctx context.Context, id user.ID) *user.Summary {
	resolved, err := s.Users.SummaryByID(ctx, id)
	if err != nil {
		return &user.Summary{ID: id}
	}
	return resolved
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) broadcaster() Broadcaster {
	if s.Broadcaster != nil {
		return s.Broadcaster
	}
	return NopBroadcaster{}
}

func (s *Service) events() EventPublisher {
	if s.Events != nil {
		return s.Events
	}
	return NopEventPublisher{}
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
