package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"github.com/tarman-2563/CycleBay/internal/app/dto"
	chatsvc "github.com/tarman-2563/CycleBay/internal/app/services/chat"
	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	domainchat "github.com/tarman-2563/CycleBay/internal/domain/chat"
)

// ChatHTTP exposes the messaging endpoints.
type ChatHTTP interface {
	CreateConversation(c *gin.Context)
	ListConversations(c *gin.Context)
	SendMessage(c *gin.Context)
	GetMessages(c *gin.Context)
	MarkRead(c *gin.Context)
	RespondToOffer(c *gin.Context)
	UnreadCount(c *gin.Context)
}

// ChatHandler bridges HTTP with the chat service. The caller identity always
// comes from the resolved principal, never from the payload.
type ChatHandler struct {
	Chat   *chatsvc.Service
	Logger *slog.Logger
}

// CreateConversation gets or creates the thread between the caller and a
// listing's seller.
func (h ChatHandler) CreateConversation(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		ListingID string `json:"listingId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ListingID) == "" {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "validation", Message: "listingId is required"})
		return
	}
	view, err := h.Chat.GetOrCreateConversation(c.Request.Context(), catalog.ListingID(req.ListingID), p.ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respondData(c, http.StatusCreated, "Conversation created successfully", dto.NewConversation(*view))
}

// ListConversations returns the caller's conversations, most recently active
// first.
func (h ChatHandler) ListConversations(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	views, err := h.Chat.ListConversations(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	conversations := make([]dto.Conversation, 0, len(views))
	for _, view := range views {
		conversations = append(conversations, dto.NewConversation(view))
	}
	respondData(c, http.StatusOK, "", conversations)
}

// SendMessage appends a message to a conversation the caller participates in.
func (h ChatHandler) SendMessage(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		ConversationID string   `json:"conversationId"`
		Content        string   `json:"content"`
		MessageType    string   `json:"messageType"`
		OfferAmount    int64    `json:"offerAmount"`
		Attachments    []string `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ConversationID) == "" {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "validation", Message: "conversationId is required"})
		return
	}
	view, err := h.Chat.SendMessage(c.Request.Context(), chatsvc.SendMessageParams{
		ConversationID: domainchat.ConversationID(req.ConversationID),
		SenderID:       p.ID,
		Type:           domainchat.MessageType(req.MessageType),
		Content:        req.Content,
		OfferAmount:    req.OfferAmount,
		Attachments:    req.Attachments,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respondData(c, http.StatusCreated, "Message sent successfully", dto.NewMessage(*view))
}

// GetMessages returns one page of conversation history, ascending within the
// page; page 1 holds the most recent messages.
func (h ChatHandler) GetMessages(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	conversationID := strings.TrimSpace(c.Param("id"))
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "validation", Message: "conversation id is required"})
		return
	}
	page := parsePositiveIntStrict(c.Query("page"), 1)
	limit := parsePositiveIntStrict(c.Query("limit"), chatsvc.DefaultPageSize)

	views, err := h.Chat.GetMessages(c.Request.Context(), domainchat.ConversationID(conversationID), p.ID, page, limit)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	messages := make([]dto.Message, 0, len(views))
	for _, view := range views {
		messages = append(messages, dto.NewMessage(view))
	}
	respondData(c, http.StatusOK, "", messages)
}

// MarkRead flags every unread message addressed to the caller in the
// conversation.
func (h ChatHandler) MarkRead(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	conversationID := strings.TrimSpace(c.Param("id"))
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "validation", Message: "conversation id is required"})
		return
	}
	if err := h.Chat.MarkRead(c.Request.Context(), domainchat.ConversationID(conversationID), p.ID); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respondData(c, http.StatusOK, "Messages marked as read", nil)
}

// RespondToOffer lets the offer's recipient accept or reject it.
func (h ChatHandler) RespondToOffer(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	messageID := strings.TrimSpace(c.Param("messageId"))
	if messageID == "" {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "validation", Message: "message id is required"})
		return
	}
	var req struct {
		Response string `json:"response"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "validation", Message: "invalid payload"})
		return
	}
	decision := domainchat.OfferStatus(strings.TrimSpace(req.Response))
	if !domainchat.ValidDecision(decision) {
		respondError(c, h.Logger, domainchat.ErrInvalidDecision)
		return
	}
	resolution, err := h.Chat.RespondToOffer(c.Request.Context(), domainchat.MessageID(messageID), p.ID, decision)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respondData(c, http.StatusOK, "Offer "+string(decision)+" successfully", dto.NewOfferResolution(*resolution))
}

// UnreadCount returns the caller's global unread badge count.
func (h ChatHandler) UnreadCount(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	count, err := h.Chat.UnreadCount(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respondData(c, http.StatusOK, "", dto.UnreadCount{UnreadCount: count})
}

func parsePositiveIntStrict(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return def
	}
	return value
}

var _ ChatHTTP = (*ChatHandler)(nil)
