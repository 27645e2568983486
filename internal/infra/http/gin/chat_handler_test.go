package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tarman-2563/CycleBay/internal/app/dto"
	authsvc "github.com/tarman-2563/CycleBay/internal/app/services/auth"
	chatsvc "github.com/tarman-2563/CycleBay/internal/app/services/chat"
	domainauth "github.com/tarman-2563/CycleBay/internal/domain/auth"
	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
	"github.com/tarman-2563/CycleBay/internal/infra/config"
	"github.com/tarman-2563/CycleBay/internal/infra/obs"
	"github.com/tarman-2563/CycleBay/internal/infra/storage/memory"
)

const (
	buyerToken    = "tok-buyer"
	sellerToken   = "tok-seller"
	strangerToken = "tok-stranger"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	listings := memory.NewListingDirectory()
	listings.Put(catalog.Listing{
		ID:      "lst-hero",
		OwnerID: "usr-seller",
		Name:    "Hero Sprint Pro",
		Price:   8500,
	})
	users := memory.NewUserDirectory()
	users.Put(domainuser.Summary{ID: "usr-buyer", Name: "Buyer", Email: "buyer@example.com"})
	users.Put(domainuser.Summary{ID: "usr-seller", Name: "Seller", Email: "seller@example.com"})
	users.Put(domainuser.Summary{ID: "usr-stranger", Name: "Stranger", Email: "stranger@example.com"})

	sessions := memory.NewSessionStore()
	for token, userID := range map[string]domainuser.ID{
		buyerToken:    "usr-buyer",
		sellerToken:   "usr-seller",
		strangerToken: "usr-stranger",
	} {
		session, err := domainauth.NewSession(domainauth.CreateSessionParams{
			Token:  domainauth.Token(token),
			UserID: userID,
			TTL:    time.Hour,
		})
		require.NoError(t, err)
		require.NoError(t, sessions.Save(context.Background(), session))
	}

	chatService := &chatsvc.Service{
		Conversations: memory.NewConversationStore(),
		Messages:      memory.NewMessageStore(),
		Listings:      listings,
		Users:         users,
	}
	authService := &authsvc.Service{Sessions: sessions, Users: users}

	server := NewServer(
		config.Config{Env: "test", HTTPAddr: ":0"},
		obs.Middleware{},
		obs.HealthHandlers{},
		Handlers{
			Chat:           ChatHandler{Chat: chatService},
			AuthMiddleware: AuthMiddleware{Service: authService}.Handle,
		},
	)
	return server.Handler
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) dto.Envelope {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return dto.Envelope{Success: envelope.Success, Message: envelope.Message, Error: envelope.Error}
}

func createConversation(t *testing.T, router http.Handler, token string) dto.Conversation {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/conversation", token, map[string]string{"listingId": "lst-hero"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var conversation dto.Conversation
	decodeEnvelope(t, rec, &conversation)
	return conversation
}

func sendMessage(t *testing.T, router http.Handler, token string, body map[string]any) dto.Message {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/send", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var message dto.Message
	decodeEnvelope(t, rec, &message)
	return message
}

func TestEndpointsRequireAuthentication(t *testing.T) {
	router := newTestRouter(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/conversation"},
		{http.MethodGet, "/api/v1/conversations"},
		{http.MethodPost, "/api/v1/send"},
		{http.MethodGet, "/api/v1/conversation/c1/messages"},
		{http.MethodPut, "/api/v1/conversation/c1/read"},
		{http.MethodPut, "/api/v1/offer/m1/respond"},
		{http.MethodGet, "/api/v1/unread-count"},
	} {
		rec := doJSON(t, router, tc.method, tc.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
		envelope := decodeEnvelope(t, rec, nil)
		require.False(t, envelope.Success)
		require.Equal(t, "unauthenticated", envelope.Error)
	}

	// An unknown token is indistinguishable from no token.
	rec := doJSON(t, router, http.MethodGet, "/api/v1/conversations", "bogus", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateConversation(t *testing.T) {
	router := newTestRouter(t)

	first := createConversation(t, router, buyerToken)
	require.NotEmpty(t, first.ID)
	require.Equal(t, "active", first.Status)
	require.Equal(t, "usr-buyer", first.Buyer.ID)
	require.Equal(t, "usr-seller", first.Seller.ID)
	require.NotNil(t, first.Listing)
	require.Equal(t, int64(8500), first.Listing.Price)

	// First contact from the same pair lands on the same thread.
	second := createConversation(t, router, buyerToken)
	require.Equal(t, first.ID, second.ID)
}

func TestCreateConversation_Validation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/conversation", buyerToken, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec, nil)
	require.Equal(t, "validation", envelope.Error)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/conversation", buyerToken, map[string]string{"listingId": "lst-missing"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	envelope = decodeEnvelope(t, rec, nil)
	require.Equal(t, "not_found", envelope.Error)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/conversation", sellerToken, map[string]string{"listingId": "lst-hero"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope = decodeEnvelope(t, rec, nil)
	require.Equal(t, "invalid_operation", envelope.Error)
}

func TestSendMessageAndHistory(t *testing.T) {
	router := newTestRouter(t)
	conversation := createConversation(t, router, buyerToken)

	sent := sendMessage(t, router, buyerToken, map[string]any{
		"conversationId": conversation.ID,
		"content":        "is this still available?",
	})
	require.Equal(t, "text", sent.MessageType)
	require.Equal(t, "usr-buyer", sent.SenderID)
	require.Equal(t, "usr-seller", sent.ReceiverID)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/conversation/"+conversation.ID+"/messages", sellerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []dto.Message
	decodeEnvelope(t, rec, &messages)
	require.Len(t, messages, 1)
	require.Equal(t, sent.ID, messages[0].ID)

	// Outsiders cannot read or write the thread.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/conversation/"+conversation.ID+"/messages", strangerToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	envelope := decodeEnvelope(t, rec, nil)
	require.Equal(t, "unauthorized", envelope.Error)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/send", strangerToken, map[string]any{
		"conversationId": conversation.ID,
		"content":        "let me in",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/send", buyerToken, map[string]any{
		"conversationId": conversation.ID,
		"content":        "",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope = decodeEnvelope(t, rec, nil)
	require.Equal(t, "validation", envelope.Error)
}

func TestSendMessage_UnknownConversation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/send", buyerToken, map[string]any{
		"conversationId": "missing",
		"content":        "hello",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOfferLifecycle(t *testing.T) {
	router := newTestRouter(t)
	conversation := createConversation(t, router, buyerToken)

	offer := sendMessage(t, router, buyerToken, map[string]any{
		"conversationId": conversation.ID,
		"content":        "would you take 7000?",
		"messageType":    "offer",
		"offerAmount":    7000,
	})
	require.Equal(t, "pending", offer.OfferStatus)

	// Bad decision strings never reach the service.
	rec := doJSON(t, router, http.MethodPut, "/api/v1/offer/"+offer.ID+"/respond", sellerToken, map[string]string{"response": "maybe"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec, nil)
	require.Equal(t, "validation", envelope.Error)

	// The offer's sender cannot resolve their own offer.
	rec = doJSON(t, router, http.MethodPut, "/api/v1/offer/"+offer.ID+"/respond", buyerToken, map[string]string{"response": "accepted"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/offer/"+offer.ID+"/respond", sellerToken, map[string]string{"response": "accepted"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resolution dto.OfferResolution
	envelope = decodeEnvelope(t, rec, &resolution)
	require.Equal(t, "Offer accepted successfully", envelope.Message)
	require.Equal(t, "accepted", resolution.Message.OfferStatus)
	require.Equal(t, "system", resolution.SystemMessage.MessageType)
	require.Equal(t, "usr-buyer", resolution.SystemMessage.ReceiverID)
	require.Contains(t, resolution.SystemMessage.Content, "7000")

	// Resolution is one-shot.
	rec = doJSON(t, router, http.MethodPut, "/api/v1/offer/"+offer.ID+"/respond", sellerToken, map[string]string{"response": "rejected"})
	require.Equal(t, http.StatusConflict, rec.Code)
	envelope = decodeEnvelope(t, rec, nil)
	require.Equal(t, "conflict", envelope.Error)
}

func TestOfferValidation(t *testing.T) {
	router := newTestRouter(t)
	conversation := createConversation(t, router, buyerToken)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/send", buyerToken, map[string]any{
		"conversationId": conversation.ID,
		"content":        "would you take less?",
		"messageType":    "offer",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec, nil)
	require.Equal(t, "validation", envelope.Error)

	text := sendMessage(t, router, buyerToken, map[string]any{
		"conversationId": conversation.ID,
		"content":        "just a message",
	})
	rec = doJSON(t, router, http.MethodPut, "/api/v1/offer/"+text.ID+"/respond", sellerToken, map[string]string{"response": "accepted"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope = decodeEnvelope(t, rec, nil)
	require.Equal(t, "invalid_operation", envelope.Error)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/offer/missing/respond", sellerToken, map[string]string{"response": "accepted"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	router := newTestRouter(t)
	conversation := createConversation(t, router, buyerToken)

	for _, content := range []string{"one", "two"} {
		sendMessage(t, router, buyerToken, map[string]any{
			"conversationId": conversation.ID,
			"content":        content,
		})
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/unread-count", sellerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var count dto.UnreadCount
	decodeEnvelope(t, rec, &count)
	require.Equal(t, int64(2), count.UnreadCount)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/conversation/"+conversation.ID+"/read", sellerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec, nil)
	require.Equal(t, "Messages marked as read", envelope.Message)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/unread-count", sellerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeEnvelope(t, rec, &count)
	require.Zero(t, count.UnreadCount)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/conversation/"+conversation.ID+"/read", strangerToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListConversations(t *testing.T) {
	router := newTestRouter(t)
	conversation := createConversation(t, router, buyerToken)
	sent := sendMessage(t, router, buyerToken, map[string]any{
		"conversationId": conversation.ID,
		"content":        "hello",
	})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/conversations", sellerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var conversations []dto.Conversation
	decodeEnvelope(t, rec, &conversations)
	require.Len(t, conversations, 1)
	require.NotNil(t, conversations[0].LastMessage)
	require.Equal(t, sent.ID, conversations[0].LastMessage.ID)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/conversations", strangerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	conversations = nil
	decodeEnvelope(t, rec, &conversations)
	require.Empty(t, conversations)
}

func TestMessagePagination(t *testing.T) {
	router := newTestRouter(t)
	conversation := createConversation(t, router, buyerToken)

	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		sendMessage(t, router, buyerToken, map[string]any{
			"conversationId": conversation.ID,
			"content":        content,
		})
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/conversation/"+conversation.ID+"/messages?page=1&limit=2", buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []dto.Message
	decodeEnvelope(t, rec, &messages)
	require.Len(t, messages, 2)
	require.Equal(t, "m4", messages[0].Content)
	require.Equal(t, "m5", messages[1].Content)

	// Junk paging input falls back to defaults instead of erroring.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/conversation/"+conversation.ID+"/messages?page=zero&limit=-3", buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	messages = nil
	decodeEnvelope(t, rec, &messages)
	require.Len(t, messages, 5)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
