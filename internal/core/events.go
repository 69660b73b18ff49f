package core

import "github.com/dkeye/webcat/internal/domain"

func systemLogoutEvent(u *User) domain.UserEvent {
	return domain.NewEvent(u.Name(), domain.EventSystemLogout)
}

func statusUpdateEvent(u *User, status domain.Status) domain.UserEvent {
	return domain.NewEvent(u.Name(), domain.EventStatusUpdate, string(status))
}

func capabilityUpdateEvent(u *User, caps []domain.CapabilityInfo) domain.UserEvent {
	data := make([]any, 0, len(caps))
	for _, c := range caps {
		data = append(data, c)
	}
	return domain.NewEvent(u.Name(), domain.EventCapabilityUpdate, data...)
}

func propertyUpdateEvent(u *User, props map[string]any) domain.UserEvent {
	return domain.NewEvent(u.Name(), domain.EventPropertyUpdate, props)
}

func activityInvitationEvent(inv *Invitation) domain.UserEvent {
	return domain.NewEvent(inv.Inviter().User().Name(), domain.EventActivityInvitation,
		inv.Activity().Definition().Name(), inv.Role().Name, inv.ID(), inv.Extra())
}

func invitationReplyEvent(inv *Invitation, accepted bool) domain.UserEvent {
	return domain.NewEvent(inv.User().Name(), domain.EventInvitationReply,
		inv.ID(), accepted, inv.Extra())
}

func cancelInvitationEvent(inv *Invitation) domain.UserEvent {
	return domain.NewEvent(inv.Inviter().User().Name(), domain.EventCancelInvitation, inv.ID())
}

func joinActivityEvent(p *Participant) domain.UserEvent {
	return domain.NewEvent(p.User().Name(), domain.EventJoinActivity,
		p.Activity().ID(), p.Role().Name, p.ID())
}

func exitActivityEvent(p *Participant) domain.UserEvent {
	return domain.NewEvent(p.User().Name(), domain.EventExitActivity,
		p.Activity().ID(), p.ID())
}
