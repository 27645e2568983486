package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	domainchat "github.com/tarman-2563/CycleBay/internal/domain/chat"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
)

// ConversationStore keeps conversations in memory. The pair index plays the
// role of the storage uniqueness constraint: Create under the write lock
// either inserts or returns the row an earlier writer inserted.
type ConversationStore struct {
	mu     sync.RWMutex
	items  map[domainchat.ConversationID]*domainchat.Conversation
	byPair map[string]domainchat.ConversationID
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		items:  make(map[domainchat.ConversationID]*domainchat.Conversation),
		byPair: make(map[string]domainchat.ConversationID),
	}
}

func (s *ConversationStore) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conversation, ok := s.items[id]
	if !ok {
		return nil, domainchat.ErrConversationNotFound
	}
	return cloneConversation(conversation), nil
}

func (s *ConversationStore) ByPair(ctx context.Context, listingID catalog.ListingID, a, b domainuser.ID) (*domainchat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[domainchat.PairKey(listingID, a, b)]
	if !ok {
		return nil, domainchat.ErrConversationNotFound
	}
	return cloneConversation(s.items[id]), nil
}

func (s *ConversationStore) Create(ctx context.Context, conversation *domainchat.Conversation) (*domainchat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := conversation.PairKey()
	if existingID, ok := s.byPair[key]; ok {
		return cloneConversation(s.items[existingID]), nil
	}
	stored := cloneConversation(conversation)
	s.items[stored.ID] = stored
	s.byPair[key] = stored.ID
	return cloneConversation(stored), nil
}

func (s *ConversationStore) ByParticipant(ctx context.Context, userID domainuser.ID) ([]*domainchat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*domainchat.Conversation, 0)
	for _, conversation := range s.items {
		if conversation.BuyerID == userID || conversation.SellerID == userID {
			matches = append(matches, cloneConversation(conversation))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].LastActivity.After(matches[j].LastActivity)
	})
	return matches, nil
}

func (s *ConversationStore) Touch(ctx context.Context, id domainchat.ConversationID, lastMessage domainchat.MessageID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation, ok := s.items[id]
	if !ok {
		return domainchat.ErrConversationNotFound
	}
	conversation.LastMessageID = lastMessage
	conversation.LastActivity = at
	return nil
}

// MessageStore is the in-memory message ledger. Messages per conversation
// are held in append order, which is also chronological order.
type MessageStore struct {
	mu    sync.RWMutex
	items map[domainchat.MessageID]*domainchat.Message
	order map[domainchat.ConversationID][]domainchat.MessageID
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		items: make(map[domainchat.MessageID]*domainchat.Message),
		order: make(map[domainchat.ConversationID][]domainchat.MessageID),
	}
}

func (s *MessageStore) ByID(ctx context.Context, id domainchat.MessageID) (*domainchat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	message, ok := s.items[id]
	if !ok {
		return nil, domainchat.ErrMessageNotFound
	}
	return cloneMessage(message), nil
}

func (s *MessageStore) Append(ctx context.Context, message *domainchat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneMessage(message)
	s.items[stored.ID] = stored
	s.order[stored.ConversationID] = append(s.order[stored.ConversationID], stored.ID)
	return nil
}

// Page cuts pages newest-first and returns the page contents ascending, so
// page 1 holds the most recent pageSize messages in chronological order.
func (s *MessageStore) Page(ctx context.Context, conversationID domainchat.ConversationID, page, pageSize int) ([]*domainchat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order[conversationID]
	end := len(ids) - (page-1)*pageSize
	if end <= 0 {
		return nil, nil
	}
	start := end - pageSize
	if start < 0 {
		start = 0
	}
	result := make([]*domainchat.Message, 0, end-start)
	for _, id := range ids[start:end] {
		result = append(result, cloneMessage(s.items[id]))
	}
	return result, nil
}

// ResolveOffer is the conditional pending→decision write. The check and the
// assignment share the store lock, so exactly one of two racing responders
// wins; the other observes a non-pending status and gets ErrOfferResolved.
func (s *MessageStore) ResolveOffer(ctx context.Context, id domainchat.MessageID, decision domainchat.OfferStatus) (*domainchat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message, ok := s.items[id]
	if !ok {
		return nil, domainchat.ErrMessageNotFound
	}
	if !message.Type.IsOffer() {
		return nil, domainchat.ErrNotAnOffer
	}
	if message.OfferStatus != domainchat.OfferPending {
		return nil, domainchat.ErrOfferResolved
	}
	message.OfferStatus = decision
	return cloneMessage(message), nil
}

func (s *MessageStore) MarkRead(ctx context.Context, conversationID domainchat.ConversationID, reader domainuser.ID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for _, id := range s.order[conversationID] {
		message := s.items[id]
		if message.ReceiverID == reader && !message.IsRead {
			message.IsRead = true
			message.ReadAt = at
			updated++
		}
	}
	return updated, nil
}

func (s *MessageStore) CountUnread(ctx context.Context, userID domainuser.ID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, message := range s.items {
		if message.ReceiverID == userID && !message.IsRead {
			count++
		}
	}
	return count, nil
}

func cloneConversation(c *domainchat.Conversation) *domainchat.Conversation {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

func cloneMessage(m *domainchat.Message) *domainchat.Message {
	if m == nil {
		return nil
	}
	copied := *m
	copied.Attachments = append([]string(nil), m.Attachments...)
	return &copied
}
