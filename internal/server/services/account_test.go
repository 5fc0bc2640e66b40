package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crateport/crateport/internal/common"
	"github.com/crateport/crateport/internal/cryptox"
)

func TestAccount_RegisterAndLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// The "password" here is the digest the client-side helper derives; the
	// server treats it as opaque.
	digest := "a3f5c2d1e4b6978800112233445566778899aabbccddeeff"

	token, err := h.accounts.Register(ctx, "carol@example.com", "Carol", digest)
	require.NoError(t, err)
	require.Len(t, token, cryptox.TokenLength)

	// The token authenticates.
	author, err := h.accounts.Authenticate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "carol@example.com", author.Email)

	// Login with the right digest reuses the API token.
	same, err := h.accounts.Login(ctx, "carol@example.com", digest)
	require.NoError(t, err)
	require.Equal(t, token, same)

	// Wrong digest is forbidden.
	_, err = h.accounts.Login(ctx, "carol@example.com", "wrong")
	require.ErrorIs(t, err, common.ErrForbidden)

	// Unknown email is forbidden, not "not found".
	_, err = h.accounts.Login(ctx, "nobody@example.com", digest)
	require.ErrorIs(t, err, common.ErrForbidden)
}

func TestAccount_RegisterTwiceFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.accounts.Register(ctx, "carol@example.com", "Carol", "digest")
	require.NoError(t, err)

	_, err = h.accounts.Register(ctx, "carol@example.com", "Carol Again", "digest")
	require.ErrorIs(t, err, common.ErrForbidden)
}

func TestAccount_Authenticate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.accounts.Authenticate(ctx, "")
	require.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = h.accounts.Authenticate(ctx, "no-such-token")
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAccount_TokenCRUD(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.accounts.CreateToken(ctx, h.author, "laptop")
	require.NoError(t, err)
	require.Len(t, created.Token, cryptox.TokenLength)

	list, err := h.accounts.ListTokens(ctx, h.author)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := h.accounts.GetToken(ctx, h.author, "laptop")
	require.NoError(t, err)
	require.Equal(t, created.Token, got.Token)

	require.NoError(t, h.accounts.RevokeToken(ctx, h.author, "laptop"))
	require.ErrorIs(t, h.accounts.RevokeToken(ctx, h.author, "laptop"), common.ErrNotFound)

	// The revoked token no longer authenticates.
	_, err = h.accounts.Authenticate(ctx, created.Token)
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAccount_SessionsAndJanitor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	expired, err := h.accounts.CreateSession(ctx, h.author.ID, -time.Hour)
	require.NoError(t, err)
	live, err := h.accounts.CreateSession(ctx, h.author.ID, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, expired.ID, live.ID)

	n, err := h.accounts.PruneSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = h.repos.Sessions(h.db).Get(ctx, live.ID)
	require.NoError(t, err)
}
