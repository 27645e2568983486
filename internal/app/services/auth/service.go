package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/tarman-2563/CycleBay/internal/domain/auth"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
)

// TokenGenerator issues opaque session tokens.
type TokenGenerator interface {
	NewToken() (string, error)
}

// Service resolves bearer tokens to verified user identities. It is the
// local stand-in for the external auth collaborator: everything downstream
// trusts the identity it returns and performs no further verification.
type Service struct {
	Sessions   domainauth.SessionStore
	Users      domainuser.Directory
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// ResolveToken maps a bearer token to the user it was issued for.
func (s *Service) ResolveToken(ctx context.Context, token string) (*domainuser.Summary, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	summary, err := s.Users.SummaryByID(ctx, session.UserID)
	if err != nil {
		// The session is valid even if the directory cannot enrich it.
		return &domainuser.Summary{ID: session.UserID}, nil
	}
	return summary, nil
}

// IssueSession creates a session for userID and returns its token. Used by
// dev tooling and tests; production credentials come from the identity
// system.
func (s *Service) IssueSession(ctx context.Context, userID domainuser.ID) (string, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: userID,
		TTL:    ttl,
		Now:    time.Now(),
	})
	if err != nil {
		return "", err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return "", err
	}
	if s.Logger != nil {
		s.Logger.Debug("session issued", "user_id", userID, "expires_at", session.ExpiresAt)
	}
	return token, nil
}

// Logout invalidates a session token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, domainauth.Token(token))
}
