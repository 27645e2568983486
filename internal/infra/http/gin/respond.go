package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/tarman-2563/CycleBay/internal/app/dto"
	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	domainchat "github.com/tarman-2563/CycleBay/internal/domain/chat"
)

func respondData(c *gin.Context, status int, message string, data any) {
	c.JSON(status, dto.Envelope{Success: true, Message: message, Data: data})
}

// respondError maps the domain failure taxonomy to HTTP statuses and stable
// error kinds. Matching is by error identity, never by message text.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, kind := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "error", err, "path", c.FullPath(), "request_id", c.GetString("request_id"))
		}
		message = "internal error"
	}
	c.JSON(status, dto.Envelope{Success: false, Error: kind, Message: message})
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrListingNotFound),
		errors.Is(err, domainchat.ErrConversationNotFound),
		errors.Is(err, domainchat.ErrMessageNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domainchat.ErrNotParticipant),
		errors.Is(err, domainchat.ErrNotOfferRecipient):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, domainchat.ErrSelfConversation),
		errors.Is(err, domainchat.ErrNotAnOffer):
		return http.StatusBadRequest, "invalid_operation"
	case errors.Is(err, domainchat.ErrConversationIncomplete),
		errors.Is(err, domainchat.ErrContentRequired),
		errors.Is(err, domainchat.ErrInvalidMessageType),
		errors.Is(err, domainchat.ErrOfferAmountRequired),
		errors.Is(err, domainchat.ErrOfferAmountOmitted),
		errors.Is(err, domainchat.ErrInvalidDecision):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domainchat.ErrOfferResolved):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
