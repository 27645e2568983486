package chat

import "errors"

// Failure taxonomy for the messaging core. The HTTP boundary matches these
// with errors.Is and maps each to a fixed status and machine-readable kind;
// error message text is never inspected.
var (
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrMessageNotFound      = errors.New("chat: message not found")

	// ErrNotParticipant covers callers acting on a conversation they are not
	// the buyer or seller of; ErrNotOfferRecipient covers offer responses by
	// anyone other than the offer's receiver, the sender included.
	ErrNotParticipant    = errors.New("chat: caller is not a conversation participant")
	ErrNotOfferRecipient = errors.New("chat: only the offer recipient may respond")

	ErrSelfConversation = errors.New("chat: cannot start a conversation with yourself")
	ErrNotAnOffer       = errors.New("chat: message is not an offer")

	ErrConversationIncomplete = errors.New("chat: conversation requires a listing and both participants")

	ErrContentRequired     = errors.New("chat: content is required")
	ErrInvalidMessageType  = errors.New("chat: invalid message type")
	ErrOfferAmountRequired = errors.New("chat: offer amount must be a positive number")
	ErrOfferAmountOmitted  = errors.New("chat: offer amount only valid for offer messages")
	ErrInvalidDecision     = errors.New("chat: decision must be accepted or rejected")

	ErrOfferResolved = errors.New("chat: offer already resolved")
)
