package core

import (
	"github.com/dkeye/webcat/internal/domain"
	"github.com/rs/zerolog/log"
)

// VideoStreamActivity streams a robot camera to a receiver over a
// VideoChannel. The receiver starts the activity and invites the robot.
type VideoStreamActivity struct {
	baseActivity

	channel VideoChannel
}

func newVideoStreamActivity(env *Env, def *ActivityDefinition) Activity {
	a := &VideoStreamActivity{}
	a.init(env, def, a)
	return a
}

// ChannelID returns the id of the allocated channel or "".
func (a *VideoStreamActivity) ChannelID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.channel == nil {
		return ""
	}
	return a.channel.ID()
}

func (a *VideoStreamActivity) Exit(p *Participant) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.exitStreamLocked(p)
}

func (a *VideoStreamActivity) exitStreamLocked(p *Participant) bool {
	if !a.exitLocked(p) {
		return false
	}
	switch p.Role().Name {
	case domain.RoleSender:
		if a.channel != nil {
			a.env.Directory.Publish(p.User().HomePath(), TopicRobotVideo, domain.StopStream(a.channel.ID()))
		}
	case domain.RoleReceiver:
		if a.channel != nil {
			a.channel.RemoveReceiver()
		}
	}

	switch len(a.participants) {
	case 0:
		if a.channel != nil {
			a.channel.Close()
			a.channel = nil
		}
	case 1:
		if sender := a.firstWithRoleLocked(domain.RoleSender); sender != nil {
			a.exitStreamLocked(sender)
			sender.User().Event(exitActivityEvent(sender))
			log.Info().
				Str("module", "core.video").
				Str("robot", sender.User().Name()).
				Str("sid", sender.Session().ID()).
				Msg("exited video stream since receiver exited")
		}
	}
	return true
}

// Invite joins an idle interbot session of the robot as sender and asks it
// to start streaming. The channel id is returned as the extra payload.
func (a *VideoStreamActivity) Invite(inviter *Participant, user *User, role *Role) domain.InvitationResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.participants) > 1 {
		return domain.Reject("activity is full")
	}
	if inviter.Activity() != Activity(a) || !a.hasLocked(inviter) {
		return domain.Reject("inviter must participate in activity")
	}
	if inviter.Role().Name != domain.RoleReceiver {
		return domain.Reject("inviter must be a receiver")
	}
	if role.Name != domain.RoleSender {
		return domain.Reject("user must be invited to sender role")
	}
	if user.Type() != domain.UserTypeRobot {
		return domain.Reject("invited user must be a robot")
	}
	if !HasActivityRole(user.Capabilities(), a.def, role) {
		return domain.Reject("user cannot support requested role at this time")
	}

	if a.channel == nil {
		a.channel = a.env.Videos.CreateChannel(a.id)
	}
	p := a.joinIdleSession(user, a.env.Catalog.Interbot, role)
	if p == nil {
		a.channel.Close()
		a.channel = nil
		return domain.Reject("user cannot assume requested role at this time")
	}
	a.channel.AttachReceiver()
	user.Event(joinActivityEvent(p))
	channelID := a.channel.ID()
	a.env.Directory.Publish(user.HomePath(), TopicRobotVideo, domain.StartStream(channelID))
	log.Info().
		Str("module", "core.video").
		Str("robot", user.Name()).
		Str("sid", p.Session().ID()).
		Str("receiver", inviter.User().Name()).
		Str("channel", channelID).
		Msg("accepted video stream invitation")
	return domain.Accept(channelID)
}
