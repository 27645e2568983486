package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/tarman-2563/CycleBay/internal/domain/auth"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
	"github.com/tarman-2563/CycleBay/internal/infra/security"
	"github.com/tarman-2563/CycleBay/internal/infra/storage/memory"
)

func newService(t *testing.T) (*Service, *memory.SessionStore) {
	t.Helper()
	users := memory.NewUserDirectory()
	users.Put(domainuser.Summary{ID: "usr-1", Name: "Meera", Email: "meera@example.com"})
	sessions := memory.NewSessionStore()
	return &Service{
		Sessions: sessions,
		Users:    users,
		Tokens:   security.RandomTokenGenerator{},
	}, sessions
}

func TestIssueAndResolve(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	token, err := svc.IssueSession(ctx, "usr-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	summary, err := svc.ResolveToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, domainuser.ID("usr-1"), summary.ID)
	require.Equal(t, "meera@example.com", summary.Email)
}

func TestResolveToken_UnknownOrBlank(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ResolveToken(ctx, "nope")
	require.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	_, err = svc.ResolveToken(ctx, "   ")
	require.ErrorIs(t, err, domainauth.ErrTokenRequired)
}

func TestResolveToken_ExpiredSessionIsGone(t *testing.T) {
	svc, sessions := newService(t)
	ctx := context.Background()

	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  "stale",
		UserID: "usr-1",
		TTL:    time.Minute,
		Now:    time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, sessions.Save(ctx, session))

	_, err = svc.ResolveToken(ctx, "stale")
	require.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestResolveToken_DegradesWithoutDirectoryEntry(t *testing.T) {
	svc, sessions := newService(t)
	ctx := context.Background()

	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  "orphan",
		UserID: "usr-gone",
		TTL:    time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, sessions.Save(ctx, session))

	summary, err := svc.ResolveToken(ctx, "orphan")
	require.NoError(t, err)
	require.Equal(t, domainuser.ID("usr-gone"), summary.ID)
	require.Empty(t, summary.Name)
}

func TestLogout(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	token, err := svc.IssueSession(ctx, "usr-1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.ResolveToken(ctx, token)
	require.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	// Unknown and blank tokens are no-op successes.
	require.NoError(t, svc.Logout(ctx, "unknown"))
	require.NoError(t, svc.Logout(ctx, ""))
}
