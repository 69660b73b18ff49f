package core

import (
	"github.com/dkeye/webcat/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// WebRTCOffer travels as the extra payload of a call invitation. Both peers
// exchange signaling messages on Topic.
type WebRTCOffer struct {
	Topic      string             `json:"topic"`
	ICEServers []webrtc.ICEServer `json:"ice_servers"`
}

// WebRTCActivity is a call between a caller and a callee. The callee decides
// on the invitation, so Invite returns Pending.
type WebRTCActivity struct {
	baseActivity

	// topics holds one signaling topic per invited callee.
	topics []p2pTopic
}

type p2pTopic struct {
	name   string
	caller string
	callee string
}

func newWebRTCActivity(env *Env, def *ActivityDefinition) Activity {
	a := &WebRTCActivity{}
	a.init(env, def, a)
	return a
}

func (a *WebRTCActivity) Exit(p *Participant) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.exitLocked(p) {
		return false
	}
	if len(a.participants) == 0 {
		a.destroyTopicsLocked()
	}
	return true
}

func (a *WebRTCActivity) destroyTopicsLocked() {
	for _, t := range a.topics {
		destroyP2PTopic(a.env.Directory, t.name, t.caller, t.callee)
		log.Debug().
			Str("module", "core.webrtc").
			Str("activity", a.id).
			Str("topic", t.name).
			Msg("destroyed p2p topic")
	}
	a.topics = nil
}

func (a *WebRTCActivity) topicLocked(caller, callee string) string {
	for _, t := range a.topics {
		if t.caller == caller && t.callee == callee {
			return t.name
		}
	}
	name := createP2PTopic(a.env.Directory, caller, callee)
	a.topics = append(a.topics, p2pTopic{name: name, caller: caller, callee: callee})
	return name
}

func (a *WebRTCActivity) Invite(inviter *Participant, user *User, role *Role) domain.InvitationResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.participants) > 1 {
		return domain.Reject("activity is full")
	}
	if inviter.Activity() != Activity(a) || !a.hasLocked(inviter) {
		return domain.Reject("inviter must participate in activity")
	}
	if inviter.Role().Name != domain.RoleCaller {
		return domain.Reject("inviter must be caller")
	}
	if role.Name != domain.RoleCallee {
		return domain.Reject("user must be invited to callee role")
	}
	if !HasActivityRole(user.Capabilities(), a.def, role) {
		return domain.Reject("user cannot support requested role at this time")
	}
	if HasActivity(user.AllParticipations(), a.def) {
		return domain.Reject("user is busy")
	}

	caller := inviter.User().Name()
	topic := a.topicLocked(caller, user.Name())
	inv := NewInvitation(inviter, user, role, WebRTCOffer{Topic: topic, ICEServers: a.env.ICEServers})
	user.Event(activityInvitationEvent(inv))
	log.Info().
		Str("module", "core.webrtc").
		Str("caller", caller).
		Str("sid", inviter.Session().ID()).
		Str("callee", user.Name()).
		Str("invitation", inv.ID()).
		Msg("call invitation pending")
	return domain.Pending(inv.ID())
}
