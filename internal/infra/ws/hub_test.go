package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	chatsvc "github.com/tarman-2563/CycleBay/internal/app/services/chat"
	domainchat "github.com/tarman-2563/CycleBay/internal/domain/chat"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
)

func dialHub(t *testing.T, hub *Hub, userID domainuser.ID) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, userID); err != nil {
			t.Errorf("serve: %v", err)
		}
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Connected(userID) }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_DeliversToReceiverRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, 8)
	go hub.Run(ctx)

	conn := dialHub(t, hub, "bob")

	hub.NewMessage("bob", chatsvc.NewMessageEvent{
		Message:        &domainchat.Message{ID: "m1", Content: "hello"},
		ConversationID: "c1",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame struct {
		Event string `json:"event"`
		Data  struct {
			ConversationID string `json:"conversationId"`
			Message        struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &frame))
	require.Equal(t, EventNewMessage, frame.Event)
	require.Equal(t, "c1", frame.Data.ConversationID)
	require.Equal(t, "hello", frame.Data.Message.Content)
}

func TestHub_EventsForOthersAreNotDelivered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, 8)
	go hub.Run(ctx)

	conn := dialHub(t, hub, "bob")

	// An event for a user with no connection is dropped, not queued for bob.
	hub.OfferResponse("alice", chatsvc.OfferResponseEvent{MessageID: "m1", Decision: domainchat.OfferAccepted})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestHub_TypingFramesReachHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type relay struct {
		conversationID domainchat.ConversationID
		userID         domainuser.ID
		isTyping       bool
	}
	var mu sync.Mutex
	var relayed []relay
	hub := NewHub(nil, 8)
	hub.Typing = func(ctx context.Context, conversationID domainchat.ConversationID, userID domainuser.ID, isTyping bool) error {
		mu.Lock()
		defer mu.Unlock()
		relayed = append(relayed, relay{conversationID, userID, isTyping})
		return nil
	}
	go hub.Run(ctx)

	conn := dialHub(t, hub, "bob")
	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "typing",
		"data":  map[string]any{"conversationId": "c1", "isTyping": true},
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(relayed) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, relay{"c1", "bob", true}, relayed[0])
}

func TestHub_DisconnectLeavesRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, 8)
	go hub.Run(ctx)

	conn := dialHub(t, hub, "bob")
	conn.Close()

	require.Eventually(t, func() bool { return !hub.Connected("bob") }, time.Second, 10*time.Millisecond)
}
