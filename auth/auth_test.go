package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/auth"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/store/memory"
	"github.com/xraph/bastion/user"
)

func setup(t *testing.T, opts ...auth.Option) (*auth.Authenticator, *memory.Store) {
	t.Helper()
	st := memory.New()
	eng, err := bastion.NewEngine(bastion.WithStore(st))
	require.NoError(t, err)
	a, err := auth.NewAuthenticator("test-secret", eng, opts...)
	require.NoError(t, err)
	return a, st
}

func TestIssueAndAuthenticate(t *testing.T) {
	a, st := setup(t)
	ctx := context.Background()
	u := &user.User{ID: id.NewUserID(), TenantID: id.NewTenantID(), Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, st.CreateUser(ctx, u))

	token, err := a.Issue(u.ID, u.TenantID)
	require.NoError(t, err)

	p, err := a.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, u.TenantID, p.TenantID)

	claims, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, u.TenantID.String(), claims.TenantID)
}

func TestRejectsBadTokens(t *testing.T) {
	a, st := setup(t)
	ctx := context.Background()
	u := &user.User{ID: id.NewUserID(), Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, st.CreateUser(ctx, u))

	token, err := a.Issue(u.ID, id.Nil)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, token+"x")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	other, _ := setup(t)
	_, err = other.Authenticate(ctx, token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "a token from another store names an unknown user")

	forged, err := auth.NewAuthenticator("other-secret", mustEngine(t, st))
	require.NoError(t, err)
	forgedToken, err := forged.Issue(u.ID, id.Nil)
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, forgedToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-48 * time.Hour) }
	a, st := setup(t, auth.WithClock(past))
	ctx := context.Background()
	u := &user.User{ID: id.NewUserID(), Name: "Eve", Email: "eve@example.com"}
	require.NoError(t, st.CreateUser(ctx, u))

	token, err := a.Issue(u.ID, id.Nil)
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	tok, err := auth.BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = auth.BearerToken("bearer   xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc"} {
		_, err := auth.BearerToken(h)
		assert.ErrorIs(t, err, auth.ErrMissingToken, h)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"))
	assert.NoError(t, auth.CheckPassword(hash, "s3cret"))
	assert.ErrorIs(t, auth.CheckPassword(hash, "wrong"), auth.ErrInvalidCredentials)
}

func TestNewAuthenticatorRequiresSecret(t *testing.T) {
	_, err := auth.NewAuthenticator("", mustEngine(t, memory.New()))
	assert.Error(t, err)
}

func mustEngine(t *testing.T, st *memory.Store) *bastion.Engine {
	t.Helper()
	eng, err := bastion.NewEngine(bastion.WithStore(st))
	require.NoError(t, err)
	return eng
}
