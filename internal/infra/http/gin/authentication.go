package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"github.com/tarman-2563/CycleBay/internal/app/dto"
	"github.com/tarman-2563/CycleBay/internal/app/services/auth"
	domainauth "github.com/tarman-2563/CycleBay/internal/domain/auth"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
)

const principalContextKey = "cyclebay.principal"

type principal struct {
	ID    domainuser.ID
	Name  string
	Email string
	Token string
}

func (p principal) Summary() *domainuser.Summary {
	return &domainuser.Summary{ID: p.ID, Name: p.Name, Email: p.Email}
}

// AuthMiddleware resolves the bearer credential to a verified identity. A
// missing or bad token leaves the request anonymous; handlers that need a
// caller reject it with 401 via requireUser.
type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	summary, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{
		ID:    summary.ID,
		Name:  summary.Name,
		Email: summary.Email,
		Token: token,
	})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireUser(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.Envelope{
			Success: false,
			Error:   "unauthenticated",
			Message: "auth required",
		})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
