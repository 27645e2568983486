package ginserver

import (
	"log/slog"

	gin "github.com/gin-gonic/gin"

	"github.com/tarman-2563/CycleBay/internal/infra/ws"
)

// RealtimeHandler admits authenticated connections to the hub. The room a
// connection joins is the verified principal's, so a client cannot attach
// itself to another user's channel.
type RealtimeHandler struct {
	Hub    *ws.Hub
	Logger *slog.Logger
}

func (h RealtimeHandler) Serve(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Hub.Serve(c.Writer, c.Request, p.ID); err != nil && h.Logger != nil {
		h.Logger.Debug("websocket upgrade failed", "user_id", p.ID, "error", err)
	}
}
