package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	domainchat "github.com/tarman-2563/CycleBay/internal/domain/chat"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
)

type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{col: db.Collection("conversations")}
}

// EnsureIndexes creates the unique pair index that makes get-or-create
// atomic: two concurrent first contacts race on the insert and the loser is
// handed the winner's document.
func (r *ConversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "last_activity", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "last_activity", Value: -1}},
		},
	})
	return err
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *ConversationRepository) ByPair(ctx context.Context, listingID catalog.ListingID, a, b domainuser.ID) (*domainchat.Conversation, error) {
	var doc conversationDocument
	filter := bson.M{"pair_key": domainchat.PairKey(listingID, a, b)}
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *domainchat.Conversation) (*domainchat.Conversation, error) {
	doc := newConversationDocument(conversation)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return r.ByPair(ctx, conversation.ListingID, conversation.BuyerID, conversation.SellerID)
		}
		return nil, err
	}
	return conversation, nil
}

func (r *ConversationRepository) ByParticipant(ctx context.Context, userID domainuser.ID) ([]*domainchat.Conversation, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"buyer_id": string(userID)},
		bson.M{"seller_id": string(userID)},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "last_activity", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []*domainchat.Conversation
	for cursor.Next(ctx) {
		var doc conversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, doc.toDomain())
	}
	return result, cursor.Err()
}

func (r *ConversationRepository) Touch(ctx context.Context, id domainchat.ConversationID, lastMessage domainchat.MessageID, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"last_message_id": string(lastMessage),
		"last_activity":   at.UnixMilli(),
	}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id)}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainchat.ErrConversationNotFound
	}
	return nil
}

type conversationDocument struct {
	ID            string `bson:"_id"`
	ListingID     string `bson:"listing_id"`
	BuyerID       string `bson:"buyer_id"`
	SellerID      string `bson:"seller_id"`
	PairKey       string `bson:"pair_key"`
	Status        string `bson:"status"`
	LastMessageID string `bson:"last_message_id,omitempty"`
	LastActivity  int64  `bson:"last_activity"`
	CreatedAt     int64  `bson:"created_at"`
}

func newConversationDocument(c *domainchat.Conversation) conversationDocument {
	return conversationDocument{
		ID:            string(c.ID),
		ListingID:     string(c.ListingID),
		BuyerID:       string(c.BuyerID),
		SellerID:      string(c.SellerID),
		PairKey:       c.PairKey(),
		Status:        string(c.Status),
		LastMessageID: string(c.LastMessageID),
		LastActivity:  c.LastActivity.UnixMilli(),
		CreatedAt:     c.CreatedAt.UnixMilli(),
	}
}

func (d conversationDocument) toDomain() *domainchat.Conversation {
	return &domainchat.Conversation{
		ID:            domainchat.ConversationID(d.ID),
		ListingID:     catalog.ListingID(d.ListingID),
		BuyerID:       domainuser.ID(d.BuyerID),
		SellerID:      domainuser.ID(d.SellerID),
		Status:        domainchat.ConversationStatus(d.Status),
		LastMessageID: domainchat.MessageID(d.LastMessageID),
		LastActivity:  timestampToTime(d.LastActivity),
		CreatedAt:     timestampToTime(d.CreatedAt),
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
