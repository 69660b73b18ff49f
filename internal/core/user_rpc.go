package core

import (
	"context"

	"github.com/dkeye/webcat/internal/domain"
)

// StartActivity creates an activity and joins the caller in an active role.
func (u *User) StartActivity(sessionID, activityName, roleName string) (domain.ActivityStartInfo, error) {
	s := u.Session(sessionID)
	if s == nil {
		return domain.ActivityStartInfo{}, domain.NewStartError(domain.ReasonInvalidSession)
	}
	def := u.env.Catalog.Definition(activityName)
	if def == nil {
		return domain.ActivityStartInfo{}, domain.NewStartError(domain.ReasonNoSuchActivity)
	}
	role := def.Role(roleName)
	if role == nil {
		return domain.ActivityStartInfo{}, domain.NewStartError(domain.ReasonNoSuchRole)
	}
	if !role.Active {
		return domain.ActivityStartInfo{}, domain.NewStartError(domain.ReasonPassiveRole)
	}
	activity := def.CreateActivity(u.env)
	p, err := activity.Join(s, role)
	if err != nil {
		return domain.ActivityStartInfo{}, err
	}
	u.logger.Info().
		Str("sid", sessionID).
		Str("activity", activityName).
		Str("role", roleName).
		Msg("started activity")
	return domain.ActivityStartInfo{ActivityID: activity.ID(), ParticipantID: p.ID()}, nil
}

// ExitActivity leaves the activity. Unknown sessions or participants are
// ignored.
func (u *User) ExitActivity(sessionID, participantID string) {
	s := u.Session(sessionID)
	if s == nil {
		return
	}
	p := s.Participant(participantID)
	if p == nil {
		return
	}
	p.ExitActivity()
	u.logger.Info().
		Str("sid", sessionID).
		Str("activity", p.Activity().Definition().Name()).
		Str("role", p.Role().Name).
		Msg("exited activity")
}

// Invite resolves the caller's participant and the friend, then hands the
// decision to the activity.
func (u *User) Invite(sessionID, participantID, username, roleName string) domain.InvitationResult {
	s := u.Session(sessionID)
	if s == nil {
		return domain.Reject("invalid session")
	}
	p := s.Participant(participantID)
	if p == nil {
		return domain.Reject("not a participant")
	}
	activity := p.Activity()
	role := activity.Definition().Role(roleName)
	if role == nil {
		return domain.Reject("invalid role")
	}
	friend := u.FindFriend(username)
	if friend == nil {
		return domain.Reject("cannot invite user")
	}
	u.logger.Info().
		Str("sid", sessionID).
		Str("invitee", username).
		Str("activity", activity.Definition().Name()).
		Str("role", roleName).
		Msg("invite")
	return activity.Invite(p, friend, role)
}

// InvitationReply resolves a pending invitation. The returned pair is empty
// unless the session joined the activity.
func (u *User) InvitationReply(sessionID, invitationID string, accept bool) domain.ActivityStartInfo {
	inv := u.invitations.Get(invitationID)
	if inv == nil {
		return domain.ActivityStartInfo{}
	}
	s := u.Session(sessionID)
	if s == nil || !accept {
		inv.Reject()
		return domain.ActivityStartInfo{}
	}
	if !inv.claim() {
		return domain.ActivityStartInfo{}
	}
	activity := inv.Activity()
	p, err := activity.JoinInvited(inv, s)
	if err != nil {
		u.logger.Info().Err(err).Str("sid", sessionID).Str("invitation", invitationID).Msg("cannot join on accept")
		inv.sendReply(false)
		return domain.ActivityStartInfo{}
	}
	inv.sendReply(true)
	u.logger.Info().
		Str("sid", sessionID).
		Str("inviter", inv.Inviter().User().Name()).
		Msg("accepted invitation")
	return domain.ActivityStartInfo{ActivityID: activity.ID(), ParticipantID: p.ID()}
}

func (u *User) SetPassword(ctx context.Context, sessionID, oldHash, newHash string) bool {
	if u.Session(sessionID) == nil {
		return false
	}
	if !u.env.Store.Authenticate(ctx, u.name, oldHash) {
		return false
	}
	if !u.env.Store.SetPassword(ctx, u.name, newHash) {
		return false
	}
	u.logger.Info().Str("sid", sessionID).Msg("changed password")
	return true
}
