package core_test

import (
	"testing"

	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/core/coretest"
	"github.com/dkeye/webcat/internal/domain"
	"github.com/stretchr/testify/require"
)

func newWorldT(t *testing.T) *coretest.World {
	t.Helper()
	return coretest.NewWorld()
}

// start begins an activity for u on session sid and returns the caller's
// participant.
func start(t *testing.T, u *core.User, sid, activity, role string) *core.Participant {
	t.Helper()
	info, err := u.StartActivity(sid, activity, role)
	require.NoError(t, err)
	require.False(t, info.Empty())
	p := u.Session(sid).Participant(info.ParticipantID)
	require.NotNil(t, p)
	require.Equal(t, info.ActivityID, p.Activity().ID())
	return p
}

func eventTypes(evs []domain.UserEvent) []domain.EventType {
	out := make([]domain.EventType, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}
