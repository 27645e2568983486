package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainchat "github.com/tarman-2563/CycleBay/internal/domain/chat"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
)

func newConversation(t *testing.T, id domainchat.ConversationID, buyer, seller domainuser.ID) *domainchat.Conversation {
	t.Helper()
	conversation, err := domainchat.NewConversation(domainchat.CreateConversationParams{
		ID:        id,
		ListingID: "lst-1",
		BuyerID:   buyer,
		SellerID:  seller,
	})
	require.NoError(t, err)
	return conversation
}

func newTextMessage(t *testing.T, id domainchat.MessageID, sender, receiver domainuser.ID, content string) *domainchat.Message {
	t.Helper()
	message, err := domainchat.NewMessage(domainchat.CreateMessageParams{
		ID:             id,
		ConversationID: "c1",
		SenderID:       sender,
		ReceiverID:     receiver,
		Content:        content,
	})
	require.NoError(t, err)
	return message
}

func TestConversationStore_CreateReturnsExistingOnPairConflict(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	first, err := store.Create(ctx, newConversation(t, "c1", "alice", "bob"))
	require.NoError(t, err)

	// Same pair in the opposite orientation loses to the existing row.
	duplicate, err := store.Create(ctx, newConversation(t, "c2", "bob", "alice"))
	require.NoError(t, err)
	require.Equal(t, first.ID, duplicate.ID)

	_, err = store.ByID(ctx, "c2")
	require.ErrorIs(t, err, domainchat.ErrConversationNotFound)
}

func TestConversationStore_ByPairEitherOrientation(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	created, err := store.Create(ctx, newConversation(t, "c1", "alice", "bob"))
	require.NoError(t, err)

	found, err := store.ByPair(ctx, "lst-1", "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	found, err = store.ByPair(ctx, "lst-1", "bob", "alice")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = store.ByPair(ctx, "lst-2", "alice", "bob")
	require.ErrorIs(t, err, domainchat.ErrConversationNotFound)
}

func TestConversationStore_ByParticipantOrdering(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	older := newConversation(t, "c1", "alice", "bob")
	newer, err := domainchat.NewConversation(domainchat.CreateConversationParams{
		ID:        "c2",
		ListingID: "lst-2",
		BuyerID:   "alice",
		SellerID:  "carol",
		Now:       older.CreatedAt.Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = store.Create(ctx, older)
	require.NoError(t, err)
	_, err = store.Create(ctx, newer)
	require.NoError(t, err)

	conversations, err := store.ByParticipant(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	require.Equal(t, domainchat.ConversationID("c2"), conversations[0].ID)

	require.NoError(t, store.Touch(ctx, "c1", "m1", older.CreatedAt.Add(time.Hour)))

	conversations, err = store.ByParticipant(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domainchat.ConversationID("c1"), conversations[0].ID)
	require.Equal(t, domainchat.MessageID("m1"), conversations[0].LastMessageID)

	conversations, err = store.ByParticipant(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, conversations, 1)

	conversations, err = store.ByParticipant(ctx, "mallory")
	require.NoError(t, err)
	require.Empty(t, conversations)
}

func TestConversationStore_CloneOnRead(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	_, err := store.Create(ctx, newConversation(t, "c1", "alice", "bob"))
	require.NoError(t, err)

	read, err := store.ByID(ctx, "c1")
	require.NoError(t, err)
	read.Status = domainchat.ConversationClosed

	again, err := store.ByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, domainchat.ConversationActive, again.Status)
}

func TestMessageStore_PageEdges(t *testing.T) {
	store := NewMessageStore()
	ctx := context.Background()

	for i, id := range []domainchat.MessageID{"m1", "m2", "m3", "m4", "m5"} {
		message := newTextMessage(t, id, "alice", "bob", "msg")
		message.CreatedAt = message.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Append(ctx, message))
	}

	page, err := store.Page(ctx, "c1", 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, domainchat.MessageID("m4"), page[0].ID)
	require.Equal(t, domainchat.MessageID("m5"), page[1].ID)

	page, err = store.Page(ctx, "c1", 3, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, domainchat.MessageID("m1"), page[0].ID)

	page, err = store.Page(ctx, "c1", 4, 2)
	require.NoError(t, err)
	require.Empty(t, page)

	page, err = store.Page(ctx, "c1", 1, 50)
	require.NoError(t, err)
	require.Len(t, page, 5)
	require.Equal(t, domainchat.MessageID("m1"), page[0].ID)

	page, err = store.Page(ctx, "empty", 1, 10)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestMessageStore_ResolveOffer(t *testing.T) {
	store := NewMessageStore()
	ctx := context.Background()

	offer, err := domainchat.NewMessage(domainchat.CreateMessageParams{
		ID:             "m1",
		ConversationID: "c1",
		SenderID:       "alice",
		ReceiverID:     "bob",
		Type:           domainchat.MessageOffer,
		Content:        "offering 500",
		OfferAmount:    500,
	})
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, offer))

	resolved, err := store.ResolveOffer(ctx, "m1", domainchat.OfferAccepted)
	require.NoError(t, err)
	require.Equal(t, domainchat.OfferAccepted, resolved.OfferStatus)

	// The transition is one-shot.
	_, err = store.ResolveOffer(ctx, "m1", domainchat.OfferRejected)
	require.ErrorIs(t, err, domainchat.ErrOfferResolved)

	_, err = store.ResolveOffer(ctx, "missing", domainchat.OfferAccepted)
	require.ErrorIs(t, err, domainchat.ErrMessageNotFound)

	text := newTextMessage(t, "m2", "alice", "bob", "plain")
	require.NoError(t, store.Append(ctx, text))
	_, err = store.ResolveOffer(ctx, "m2", domainchat.OfferAccepted)
	require.ErrorIs(t, err, domainchat.ErrNotAnOffer)
}

func TestMessageStore_MarkReadAndCountUnread(t *testing.T) {
	store := NewMessageStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, newTextMessage(t, "m1", "alice", "bob", "one")))
	require.NoError(t, store.Append(ctx, newTextMessage(t, "m2", "alice", "bob", "two")))
	require.NoError(t, store.Append(ctx, newTextMessage(t, "m3", "bob", "alice", "three")))

	count, err := store.CountUnread(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	at := time.Now().UTC()
	updated, err := store.MarkRead(ctx, "c1", "bob", at)
	require.NoError(t, err)
	require.Equal(t, int64(2), updated)

	count, err = store.CountUnread(ctx, "bob")
	require.NoError(t, err)
	require.Zero(t, count)

	// alice's inbound message is untouched by bob's read receipt.
	count, err = store.CountUnread(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	read, err := store.ByID(ctx, "m1")
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.Equal(t, at, read.ReadAt)

	updated, err = store.MarkRead(ctx, "c1", "bob", at)
	require.NoError(t, err)
	require.Zero(t, updated)
}
