package app

import (
	"context"
	"testing"

	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		user    string
		hash    string
		client  string
		wantErr error
	}{
		{name: "web", user: "alice", hash: "alice-pw", client: domain.ClientWeb},
		{name: "robot", user: "r1", hash: "r1-pw", client: domain.ClientInterbot},
		{name: "wrong password", user: "alice", hash: "nope", client: domain.ClientWeb, wantErr: domain.ErrNotAuthenticated},
		{name: "unknown user", user: "mallory", hash: "x", client: domain.ClientWeb, wantErr: domain.ErrNotAuthenticated},
		{name: "admin", user: "root", hash: "root-pw", client: domain.ClientWeb, wantErr: domain.ErrNotAuthenticated},
		{name: "human as interbot", user: "alice", hash: "alice-pw", client: domain.ClientInterbot, wantErr: domain.ErrNotAuthenticated},
		{name: "unknown client", user: "alice", hash: "alice-pw", client: "desktop", wantErr: ErrUnknownClient},
		{name: "invalid name", user: "a b", hash: "x", client: domain.ClientWeb, wantErr: domain.ErrUsernameInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			sid, err := f.service.Login(context.Background(), tc.user, tc.hash, tc.client)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, sid)
				assert.Nil(t, f.users.Loaded(tc.user), "failed logins do not keep users loaded")
				return
			}
			require.NoError(t, err)
			_, err = uuid.Parse(sid)
			require.NoError(t, err)
			u, err := f.service.User(tc.user, sid)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusOnline, u.Status())
		})
	}
}

func TestServiceRobotLoginSchedulesSystemInfo(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.service.Login(context.Background(), "alice", "alice-pw", domain.ClientWeb)
	require.NoError(t, err)
	assert.Zero(t, f.tasks.Len())

	_, err = f.service.Login(context.Background(), "r1", "r1-pw", domain.ClientInterbot)
	require.NoError(t, err)
	assert.Equal(t, 1, f.tasks.Len())
}

func TestServiceLoginRateLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for range 3 {
		_, err := f.service.Login(ctx, "alice", "wrong", domain.ClientWeb)
		require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	}
	_, err := f.service.Login(ctx, "alice", "alice-pw", domain.ClientWeb)
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = f.service.Login(ctx, "bob", "bob-pw", domain.ClientWeb)
	assert.NoError(t, err)
}

func TestServiceRPC(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.store.MakeFriends("alice", "bob")

	aliceSID, err := f.service.Login(ctx, "alice", "alice-pw", domain.ClientWeb)
	require.NoError(t, err)
	bobSID, err := f.service.Login(ctx, "bob", "bob-pw", domain.ClientWeb)
	require.NoError(t, err)

	_, err = f.service.StartActivity("alice", "bogus", domain.ActivityWebRTC, domain.RoleCaller)
	assert.ErrorIs(t, err, domain.NewStartError(domain.ReasonInvalidSession))
	_, err = f.service.StartActivity("alice", aliceSID, domain.ActivityWebRTC, domain.RoleCallee)
	assert.ErrorIs(t, err, domain.NewStartError(domain.ReasonPassiveRole))

	info, err := f.service.StartActivity("alice", aliceSID, domain.ActivityWebRTC, domain.RoleCaller)
	require.NoError(t, err)

	assert.Equal(t, domain.Reject("invalid session"),
		f.service.Invite("alice", bobSID, info.ParticipantID, "bob", domain.RoleCallee))
	res := f.service.Invite("alice", aliceSID, info.ParticipantID, "bob", domain.RoleCallee)
	require.Equal(t, domain.ResponsePending, res.Response, res.Reason)

	joined, err := f.service.InvitationReply("bob", bobSID, res.InvitationID, true)
	require.NoError(t, err)
	assert.Equal(t, info.ActivityID, joined.ActivityID)

	friends, err := f.service.Friends("alice", aliceSID)
	require.NoError(t, err)
	require.Contains(t, friends, "bob")
	assert.Equal(t, domain.StatusOnline, friends["bob"].Status)

	require.NoError(t, f.service.ExitActivity("bob", bobSID, joined.ParticipantID))
	assert.ErrorIs(t, f.service.ExitActivity("bob", "bogus", joined.ParticipantID), domain.ErrNotAuthenticated)

	ok, err := f.service.SetPassword(ctx, "alice", aliceSID, "alice-pw", "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	f.service.Logout("alice", aliceSID)
	_, err = f.service.User("alice", aliceSID)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	_, err = f.service.Login(ctx, "alice", "fresh", domain.ClientWeb)
	assert.NoError(t, err)
}

func TestServiceTopicHandlers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	handlers := f.service.TopicHandlers()
	require.Contains(t, handlers, core.TopicSessionPong)
	require.Contains(t, handlers, core.TopicSystemInfoResp)

	sid, err := f.service.Login(ctx, "r1", "r1-pw", domain.ClientInterbot)
	require.NoError(t, err)
	r1 := f.users.Loaded("r1")

	r1.ExecuteSessionPing()
	require.Equal(t, 1, r1.Session(sid).PongCount())
	handlers[core.TopicSessionPong](r1, sid, nil)
	assert.Equal(t, 2, r1.Session(sid).PongCount())

	handlers[core.TopicSystemInfoResp](r1, sid, "garbage")
	assert.Empty(t, r1.Properties())
	handlers[core.TopicSystemInfoResp](r1, sid, map[string]any{domain.PropertyNetworkInterfaces: []any{"eth0"}})
	assert.Contains(t, r1.Properties(), domain.PropertyNetworkInterfaces)

	aliceSID, err := f.service.Login(ctx, "alice", "alice-pw", domain.ClientWeb)
	require.NoError(t, err)
	alice := f.users.Loaded("alice")
	handlers[core.TopicSystemInfoResp](alice, aliceSID, map[string]any{"x": 1})
	assert.Empty(t, alice.Properties())
}
