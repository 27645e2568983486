package chat

import (
	"strings"
	"time"

	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	"github.com/tarman-2563/CycleBay/internal/domain/user"
)

type MessageID string

type MessageType string

const (
	MessageText         MessageType = "text"
	MessageOffer        MessageType = "offer"
	MessageCounterOffer MessageType = "counter-offer"
	MessageImage        MessageType = "image"
	MessageSystem       MessageType = "system"
)

// IsOffer reports whether the type participates in the offer lifecycle.
func (t MessageType) IsOffer() bool {
	return t == MessageOffer || t == MessageCounterOffer
}

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageOffer, MessageCounterOffer, MessageImage, MessageSystem:
		return true
	}
	return false
}

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
	// OfferExpired is a declared terminal status nothing currently enters.
	// Kept so stored documents carrying it still decode; an expiry policy is
	// a product decision that has not been made.
	OfferExpired OfferStatus = "expired"
)

// Message is one append-only ledger entry. Offer and counter-offer messages
// carry OfferAmount and OfferStatus; the status starts at pending and is
// written at most once more, to accepted or rejected. Messages are never
// edited or deleted.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	ListingID      catalog.ListingID
	SenderID       user.ID
	ReceiverID     user.ID
	Type           MessageType
	Content        string
	OfferAmount    int64
	OfferStatus    OfferStatus
	Attachments    []string
	IsRead         bool
	ReadAt         time.Time
	CreatedAt      time.Time
}

type CreateMessageParams struct {
	ID             MessageID
	ConversationID ConversationID
	ListingID      catalog.ListingID
	SenderID       user.ID
	ReceiverID     user.ID
	Type           MessageType
	Content        string
	OfferAmount    int64
	Attachments    []string
	Now            time.Time
}

// NewMessage validates the type/amount coupling and stamps creation state.
// The receiver is computed by the caller as the conversation counterpart,
// never taken from client input.
func NewMessage(params CreateMessageParams) (*Message, error) {
	msgType := params.Type
	if msgType == "" {
		msgType = MessageText
	}
	if !msgType.Valid() {
		return nil, ErrInvalidMessageType
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, ErrContentRequired
	}

	var amount int64
	var status OfferStatus
	if msgType.IsOffer() {
		if params.OfferAmount <= 0 {
			return nil, ErrOfferAmountRequired
		}
		amount = params.OfferAmount
		status = OfferPending
	} else if params.OfferAmount != 0 {
		return nil, ErrOfferAmountOmitted
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ID:             params.ID,
		ConversationID: params.ConversationID,
		ListingID:      params.ListingID,
		SenderID:       params.SenderID,
		ReceiverID:     params.ReceiverID,
		Type:           msgType,
		Content:        params.Content,
		OfferAmount:    amount,
		OfferStatus:    status,
		Attachments:    append([]string(nil), params.Attachments...),
		CreatedAt:      now.UTC(),
	}, nil
}

// ValidDecision reports whether s is a terminal status a recipient may set.
func ValidDecision(s OfferStatus) bool {
	return s == OfferAccepted || s == OfferRejected
}

// CheckRespondable verifies that responder may resolve this message right
// now. It does not mutate: the actual pending→decision transition is a
// single conditional write owned by the message store, so a concurrent
// responder loses with ErrOfferResolved instead of double-resolving.
func (m *Message) CheckRespondable(responder user.ID, decision OfferStatus) error {
	if !m.Type.IsOffer() {
		return ErrNotAnOffer
	}
	if !ValidDecision(decision) {
		return ErrInvalidDecision
	}
	if m.ReceiverID != responder {
		return ErrNotOfferRecipient
	}
	if m.OfferStatus != OfferPending {
		return ErrOfferResolved
	}
	return nil
}
