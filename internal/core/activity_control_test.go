package core_test

import (
	"sync"
	"testing"

	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/core/coretest"
	"github.com/dkeye/webcat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// controlWorld has alice (web) befriended with robot r1 (interbot).
func controlWorld(t *testing.T) (*coretest.World, *core.User, *core.User) {
	t.Helper()
	w := newWorldT(t)
	w.Friends("alice", "r1")
	r1 := w.Robot("r1")
	alice := w.Human("alice")
	w.Interbot(r1, "r1-a")
	w.Web(alice, "w1")
	return w, alice, r1
}

func robotAccess(w *coretest.World, controller, robot string) bool {
	return w.Directory.Linked(
		core.FullEventPath(controller, core.EventsBasePath),
		core.FullEventPath(robot, core.RobotBasePath))
}

func TestControlInviteGrantsAndExitCascades(t *testing.T) {
	t.Parallel()
	w, alice, r1 := controlWorld(t)

	p := start(t, alice, "w1", domain.ActivityControl, domain.RoleController)
	assert.False(t, robotAccess(w, "alice", "r1"))

	res := alice.Invite("w1", p.ID(), "r1", domain.RoleRobot)
	require.Equal(t, domain.ResponseAccept, res.Response, res.Reason)
	assert.Equal(t, 2, p.Activity().Count())
	assert.True(t, robotAccess(w, "alice", "r1"))

	joins := w.Directory.Events("r1", domain.EventJoinActivity)
	require.Len(t, joins, 1)
	assert.Equal(t, "r1", joins[0].Username)
	assert.Equal(t, p.Activity().ID(), joins[0].Data[0])
	assert.Len(t, w.Directory.Events("alice", domain.EventJoinActivity), 1)

	robotSession := r1.Session("r1-a")
	require.Len(t, robotSession.Participations(), 1)
	robotPID := robotSession.Participations()[0].ID()

	alice.ExitActivity("w1", p.ID())

	assert.False(t, robotAccess(w, "alice", "r1"))
	assert.Equal(t, 0, p.Activity().Count())
	assert.Empty(t, robotSession.Participations())
	exits := w.Directory.Events("r1", domain.EventExitActivity)
	require.Len(t, exits, 2)
	assert.Equal(t, "alice", exits[0].Username)
	assert.Equal(t, "r1", exits[1].Username)
	assert.Equal(t, []any{p.Activity().ID(), robotPID}, exits[1].Data)

	links, unlinks := w.Directory.LinkCounts()
	assert.Equal(t, links, unlinks)
}

func TestControlRobotExitKeepsController(t *testing.T) {
	t.Parallel()
	w, alice, r1 := controlWorld(t)

	p := start(t, alice, "w1", domain.ActivityControl, domain.RoleController)
	require.Equal(t, domain.ResponseAccept, alice.Invite("w1", p.ID(), "r1", domain.RoleRobot).Response)

	robot := r1.Session("r1-a").Participations()[0]
	assert.True(t, robot.ExitActivity())
	assert.False(t, robot.ExitActivity())

	assert.False(t, robotAccess(w, "alice", "r1"))
	assert.Equal(t, 1, p.Activity().Count())
	assert.NotNil(t, alice.Session("w1").Participant(p.ID()))

	res := alice.Invite("w1", p.ID(), "r1", domain.RoleRobot)
	assert.Equal(t, domain.ResponseAccept, res.Response, res.Reason)
	assert.True(t, robotAccess(w, "alice", "r1"))
}

func TestControlInviteRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		invite func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult
		reason string
	}{
		{
			name: "full",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				require.Equal(t, domain.ResponseAccept, alice.Invite("w1", p.ID(), "r1", domain.RoleRobot).Response)
				return alice.Invite("w1", p.ID(), "r1", domain.RoleRobot)
			},
			reason: "activity is full",
		},
		{
			name: "inviter from another activity",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				other := start(t, alice, "w1", domain.ActivityControl, domain.RoleController)
				r1 := w.Users.Loaded("r1")
				return p.Activity().Invite(other, r1, w.Env.Catalog.Control.Role(domain.RoleRobot))
			},
			reason: "inviter must participate in activity",
		},
		{
			name: "inviter not controller",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				r1 := w.Users.Loaded("r1")
				role := w.Env.Catalog.Control.Role(domain.RoleRobot)
				a := w.Env.Catalog.Control.CreateActivity(w.Env)
				robot, err := a.Join(r1.Session("r1-a"), role)
				require.NoError(t, err)
				return a.Invite(robot, r1, role)
			},
			reason: "inviter must be a controller",
		},
		{
			name: "wrong role",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				return alice.Invite("w1", p.ID(), "r1", domain.RoleController)
			},
			reason: "user must be invited to robot role",
		},
		{
			name: "human invitee",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				bob := w.Human("bob")
				w.Web(bob, "b1")
				return p.Activity().Invite(p, bob, w.Env.Catalog.Control.Role(domain.RoleRobot))
			},
			reason: "invited user must be a robot",
		},
		{
			name: "robot offline",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				w.Users.Loaded("r1").Logout("r1-a")
				return alice.Invite("w1", p.ID(), "r1", domain.RoleRobot)
			},
			reason: "user cannot support requested role at this time",
		},
		{
			name: "robot session busy",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				carol := w.Human("carol")
				w.Web(carol, "c1")
				other := start(t, carol, "c1", domain.ActivityControl, domain.RoleController)
				r1 := w.Users.Loaded("r1")
				require.Equal(t, domain.ResponseAccept,
					other.Activity().Invite(other, r1, w.Env.Catalog.Control.Role(domain.RoleRobot)).Response)
				return alice.Invite("w1", p.ID(), "r1", domain.RoleRobot)
			},
			reason: "user cannot assume requested role at this time",
		},
		{
			name: "not a friend",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				w.Interbot(w.Robot("r2"), "r2-a")
				return alice.Invite("w1", p.ID(), "r2", domain.RoleRobot)
			},
			reason: "cannot invite user",
		},
		{
			name: "unknown participant",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				return alice.Invite("w1", "nope#1", "r1", domain.RoleRobot)
			},
			reason: "not a participant",
		},
		{
			name: "unknown role",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				return alice.Invite("w1", p.ID(), "r1", "pilot")
			},
			reason: "invalid role",
		},
		{
			name: "unknown session",
			invite: func(t *testing.T, w *coretest.World, alice *core.User, p *core.Participant) domain.InvitationResult {
				return alice.Invite("w9", p.ID(), "r1", domain.RoleRobot)
			},
			reason: "invalid session",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w, alice, _ := controlWorld(t)
			p := start(t, alice, "w1", domain.ActivityControl, domain.RoleController)
			res := tc.invite(t, w, alice, p)
			assert.Equal(t, domain.ResponseReject, res.Response)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestControlConcurrentInvitesNeverOverfill(t *testing.T) {
	t.Parallel()
	w, alice, r1 := controlWorld(t)
	for _, sid := range []string{"r1-b", "r1-c", "r1-d"} {
		w.Interbot(r1, sid)
	}
	p := start(t, alice, "w1", domain.ActivityControl, domain.RoleController)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		accepts int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := alice.Invite("w1", p.ID(), "r1", domain.RoleRobot)
			if res.Response == domain.ResponseAccept {
				mu.Lock()
				accepts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepts)
	assert.Equal(t, 2, p.Activity().Count())
	assert.LessOrEqual(t, p.Activity().Count(), core.MaxParticipants)
}

func TestControlConcurrentJoinsNeverOverfill(t *testing.T) {
	t.Parallel()
	w, alice, r1 := controlWorld(t)
	p := start(t, alice, "w1", domain.ActivityControl, domain.RoleController)
	role := w.Env.Catalog.Control.Role(domain.RoleRobot)

	var sessions []*core.Session
	for i := range 12 {
		sessions = append(sessions, w.Interbot(r1, "r1-"+string(rune('m'+i))))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Activity().Join(s, role)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrActivityFull)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, core.MaxParticipants, p.Activity().Count())
}

func TestParticipantIDsAreUnique(t *testing.T) {
	t.Parallel()
	w := newWorldT(t)
	alice := w.Human("alice")
	w.Web(alice, "w1")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				info, err := alice.StartActivity("w1", domain.ActivityWebRTC, domain.RoleCaller)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, seen[info.ParticipantID], info.ParticipantID)
				seen[info.ParticipantID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 200)
}
