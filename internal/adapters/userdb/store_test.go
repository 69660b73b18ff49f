package userdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var _ core.CredentialStore = (*Store)(nil)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Path: filepath.Join(t.TempDir(), "users.db"), Cost: bcrypt.MinCost})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.CreateUser(ctx, "alice", "alice-pw", domain.UserTypeHuman))
	require.NoError(t, s.CreateUser(ctx, "r1", "r1-pw", domain.UserTypeRobot))
	require.NoError(t, s.CreateUser(ctx, "root", "root-pw", domain.UserTypeAdmin))

	assert.ErrorIs(t, s.CreateUser(ctx, "alice", "x", domain.UserTypeHuman), ErrUserExists)
	assert.ErrorIs(t, s.CreateUser(ctx, "a--b", "x", domain.UserTypeHuman), domain.ErrUsernameInvalid)
	assert.Error(t, s.CreateUser(ctx, "ghost", "x", domain.UserTypeUnknown))

	tests := []struct {
		user, hash string
		want       bool
	}{
		{user: "alice", hash: "alice-pw", want: true},
		{user: "alice", hash: "r1-pw"},
		{user: "alice", hash: ""},
		{user: "r1", hash: "r1-pw", want: true},
		{user: "nobody", hash: "alice-pw"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, s.Authenticate(ctx, tc.user, tc.hash), "%s/%s", tc.user, tc.hash)
	}

	assert.Equal(t, domain.UserTypeHuman, s.UserType(ctx, "alice"))
	assert.Equal(t, domain.UserTypeRobot, s.UserType(ctx, "r1"))
	assert.Equal(t, domain.UserTypeAdmin, s.UserType(ctx, "root"))
	assert.Equal(t, domain.UserTypeUnknown, s.UserType(ctx, "nobody"))
}

func TestSetPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.CreateUser(ctx, "alice", "old", domain.UserTypeHuman))

	assert.True(t, s.SetPassword(ctx, "alice", "new"))
	assert.False(t, s.Authenticate(ctx, "alice", "old"))
	assert.True(t, s.Authenticate(ctx, "alice", "new"))

	assert.False(t, s.SetPassword(ctx, "nobody", "new"))
	assert.ErrorIs(t, s.ChangePassword(ctx, "nobody", "new"), ErrNoSuchUser)
}

func TestFriends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t)
	for _, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, s.CreateUser(ctx, name, name, domain.UserTypeHuman))
	}

	require.NoError(t, s.MakeFriends(ctx, "alice", "carol"))
	require.NoError(t, s.MakeFriends(ctx, "bob", "alice"))
	require.NoError(t, s.MakeFriends(ctx, "alice", "bob"))

	assert.Equal(t, []string{"bob", "carol"}, s.ListFriends(ctx, "alice"))
	assert.Equal(t, []string{"alice"}, s.ListFriends(ctx, "bob"))
	assert.Empty(t, s.ListFriends(ctx, "nobody"))

	assert.ErrorIs(t, s.MakeFriends(ctx, "alice", "nobody"), ErrNoSuchUser)
	assert.Error(t, s.MakeFriends(ctx, "alice", "alice"))
	assert.Equal(t, []string{"bob", "carol"}, s.ListFriends(ctx, "alice"))
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.db")

	s, err := Open(Options{Path: path, Cost: bcrypt.MinCost})
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, "alice", "pw", domain.UserTypeHuman))
	require.NoError(t, s.Close())

	s, err = Open(Options{Path: path, Cost: bcrypt.MinCost})
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, s.Authenticate(ctx, "alice", "pw"))

	_, err = Open(Options{})
	assert.Error(t, err)
}
