package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	domainchat "github.com/tarman-2563/CycleBay/internal/domain/chat"
	"github.com/tarman-2563/CycleBay/internal/infra/obs"
)

const (
	TopicMessageSent   = "chat.message.sent"
	TopicOfferResolved = "chat.offer.resolved"
)

// ChatEventPublisher mirrors chat mutations onto Kafka, keyed by
// conversation id so one conversation's events stay in order on a partition.
// Publishing is best effort: errors are logged and swallowed, the durable
// ledger is already committed by the time an event is emitted.
type ChatEventPublisher struct {
	Producer    *Producer
	TopicPrefix string
	Logger      *slog.Logger
}

type messageSentEvent struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	ListingID      string    `json:"listingId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	MessageType    string    `json:"messageType"`
	OfferAmount    int64     `json:"offerAmount,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type offerResolvedEvent struct {
	MessageID       string `json:"messageId"`
	ConversationID  string `json:"conversationId"`
	Decision        string `json:"decision"`
	OfferAmount     int64  `json:"offerAmount"`
	SystemMessageID string `json:"systemMessageId"`
}

func (p *ChatEventPublisher) MessageSent(ctx context.Context, message *domainchat.Message) {
	p.emit(ctx, TopicMessageSent, string(message.ConversationID), messageSentEvent{
		MessageID:      string(message.ID),
		ConversationID: string(message.ConversationID),
		ListingID:      string(message.ListingID),
		SenderID:       string(message.SenderID),
		ReceiverID:     string(message.ReceiverID),
		MessageType:    string(message.Type),
		OfferAmount:    message.OfferAmount,
		CreatedAt:      message.CreatedAt,
	})
}

func (p *ChatEventPublisher) OfferResolved(ctx context.Context, offer, systemMessage *domainchat.Message) {
	p.emit(ctx, TopicOfferResolved, string(offer.ConversationID), offerResolvedEvent{
		MessageID:       string(offer.ID),
		ConversationID:  string(offer.ConversationID),
		Decision:        string(offer.OfferStatus),
		OfferAmount:     offer.OfferAmount,
		SystemMessageID: string(systemMessage.ID),
	})
}

func (p *ChatEventPublisher) emit(ctx context.Context, topic, key string, event any) {
	if p.Producer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logError("chat event encode failed", topic, err)
		return
	}
	headers := map[string]string{"content-type": "application/json"}
	if requestID := obs.RequestIDFromContext(ctx); requestID != "" {
		headers["request-id"] = requestID
	}
	if err := p.Producer.Publish(ctx, p.TopicPrefix+topic, key, payload, headers); err != nil {
		p.logError("chat event publish failed", topic, err)
	}
}

func (p *ChatEventPublisher) logError(msg, topic string, err error) {
	if p.Logger != nil {
		p.Logger.Warn(msg, "topic", topic, "error", err)
	}
}
