package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dkeye/webcat/internal/adapters/userdb"
	"github.com/dkeye/webcat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "users.db")
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("db_path: "+dbPath+"\nbcrypt_cost: 4\nsecret: cli-test\n"), 0o600))
	return cfgPath, dbPath
}

func executeCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func openDB(t *testing.T, path string) *userdb.Store {
	t.Helper()
	s, err := userdb.Open(userdb.Options{Path: path, Cost: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUserAddAndFriends(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)

	out, err := executeCLI(t, cfgPath, "user", "add", "alice", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "created alice (human)")

	_, err = executeCLI(t, cfgPath, "user", "add", "r1", "--type", "robot", "--password", "pw")
	require.NoError(t, err)

	_, err = executeCLI(t, cfgPath, "user", "add", "ghost", "--type", "alien", "--password", "pw")
	assert.Error(t, err)
	_, err = executeCLI(t, cfgPath, "user", "add", "nopw")
	assert.Error(t, err)

	_, err = executeCLI(t, cfgPath, "friends", "add", "alice", "r1")
	require.NoError(t, err)
	out, err = executeCLI(t, cfgPath, "friends", "list", "r1")
	require.NoError(t, err)
	assert.Equal(t, "alice\n", out)

	_, err = executeCLI(t, cfgPath, "user", "passwd", "alice", "--password", "new")
	require.NoError(t, err)

	ctx := context.Background()
	db := openDB(t, dbPath)
	assert.True(t, db.Authenticate(ctx, "alice", "new"))
	assert.Equal(t, domain.UserTypeRobot, db.UserType(ctx, "r1"))
}

func TestUserImport(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)
	fixture := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(`
users:
  - name: alice
    password: alice-pw
    type: human
    friends: [bob, r1]
  - name: bob
    password: bob-pw
    type: human
  - name: r1
    password: r1-pw
    type: robot
`), 0o600))

	out, err := executeCLI(t, cfgPath, "user", "import", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 3 users, 2 friendships")

	ctx := context.Background()
	db := openDB(t, dbPath)
	assert.Equal(t, []string{"bob", "r1"}, db.ListFriends(ctx, "alice"))
	assert.Equal(t, []string{"alice"}, db.ListFriends(ctx, "r1"))
	assert.True(t, db.Authenticate(ctx, "bob", "bob-pw"))
}
