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

type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{col: db.Collection("messages")}
}

func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "is_read", Value: 1}},
		},
	})
	return err
}

func (r *MessageRepository) ByID(ctx context.Context, id domainchat.MessageID) (*domainchat.Message, error) {
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrMessageNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *MessageRepository) Append(ctx context.Context, message *domainchat.Message) error {
	_, err := r.col.InsertOne(ctx, newMessageDocument(message))
	return err
}

// Page fetches one newest-first page and reverses it so the page contents
// come back in ascending chronological order.
func (r *MessageRepository) Page(ctx context.Context, conversationID domainchat.ConversationID, page, pageSize int) ([]*domainchat.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cursor, err := r.col.Find(ctx, bson.M{"conversation_id": string(conversationID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var newestFirst []*domainchat.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	result := make([]*domainchat.Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		result = append(result, newestFirst[i])
	}
	return result, nil
}

// ResolveOffer runs the pending→decision transition as a single conditional
// update. A lost race matches zero documents; the follow-up read decides
// between "gone", "not an offer" and "already resolved".
func (r *MessageRepository) ResolveOffer(ctx context.Context, id domainchat.MessageID, decision domainchat.OfferStatus) (*domainchat.Message, error) {
	filter := bson.M{"_id": string(id), "offer_status": string(domainchat.OfferPending)}
	update := bson.M{"$set": bson.M{"offer_status": string(decision)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc messageDocument
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	existing, lookupErr := r.ByID(ctx, id)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if !existing.Type.IsOffer() {
		return nil, domainchat.ErrNotAnOffer
	}
	return nil, domainchat.ErrOfferResolved
}

func (r *MessageRepository) MarkRead(ctx context.Context, conversationID domainchat.ConversationID, reader domainuser.ID, at time.Time) (int64, error) {
	filter := bson.M{
		"conversation_id": string(conversationID),
		"receiver_id":     string(reader),
		"is_read":         false,
	}
	update := bson.M{"$set": bson.M{"is_read": true, "read_at": at.UnixMilli()}}
	res, err := r.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, userID domainuser.ID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"receiver_id": string(userID), "is_read": false})
}

type messageDocument struct {
	ID             string   `bson:"_id"`
	ConversationID string   `bson:"conversation_id"`
	ListingID      string   `bson:"listing_id"`
	SenderID       string   `bson:"sender_id"`
	ReceiverID     string   `bson:"receiver_id"`
	Type           string   `bson:"message_type"`
	Content        string   `bson:"content"`
	OfferAmount    int64    `bson:"offer_amount,omitempty"`
	OfferStatus    string   `bson:"offer_status,omitempty"`
	Attachments    []string `bson:"attachments,omitempty"`
	IsRead         bool     `bson:"is_read"`
	ReadAt         int64    `bson:"read_at,omitempty"`
	CreatedAt      int64    `bson:"created_at"`
}

func newMessageDocument(m *domainchat.Message) messageDocument {
	doc := messageDocument{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		ListingID:      string(m.ListingID),
		SenderID:       string(m.SenderID),
		ReceiverID:     string(m.ReceiverID),
		Type:           string(m.Type),
		Content:        m.Content,
		OfferAmount:    m.OfferAmount,
		OfferStatus:    string(m.OfferStatus),
		Attachments:    append([]string(nil), m.Attachments...),
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt.UnixMilli(),
	}
	if !m.ReadAt.IsZero() {
		doc.ReadAt = m.ReadAt.UnixMilli()
	}
	return doc
}

func (d messageDocument) toDomain() *domainchat.Message {
	m := &domainchat.Message{
		ID:             domainchat.MessageID(d.ID),
		ConversationID: domainchat.ConversationID(d.ConversationID),
		ListingID:      catalog.ListingID(d.ListingID),
		SenderID:       domainuser.ID(d.SenderID),
		ReceiverID:     domainuser.ID(d.ReceiverID),
		Type:           domainchat.MessageType(d.Type),
		Content:        d.Content,
		OfferAmount:    d.OfferAmount,
		OfferStatus:    domainchat.OfferStatus(d.OfferStatus),
		Attachments:    append([]string(nil), d.Attachments...),
		IsRead:         d.IsRead,
		CreatedAt:      timestampToTime(d.CreatedAt),
	}
	if d.ReadAt != 0 {
		m.ReadAt = timestampToTime(d.ReadAt)
	}
	return m
}
