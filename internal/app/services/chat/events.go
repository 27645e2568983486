package chat

import (
	"context"

	"github.com/tarman-2563/CycleBay/internal/domain/chat"
)

// EventPublisher mirrors successful mutations onto a durable event feed for
// downstream consumers (notifications, analytics). Publishing is
// fire-and-forget: failures are the publisher's to log, never the caller's
// to see.
type EventPublisher interface {
	MessageSent(ctx context.Context, message *chat.Message)
	OfferResolved(ctx context.Context, offer, systemMessage *chat.Message)
}

// NopEventPublisher discards events. Used when no broker is configured.
type NopEventPublisher struct{}

func (NopEventPublisher) MessageSent(context.Context, *chat.Message)                  {}
func (NopEventPublisher) OfferResolved(context.Context, *chat.Message, *chat.Message) {}
