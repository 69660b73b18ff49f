package core

import (
	"github.com/dkeye/webcat/internal/domain"
	"github.com/rs/zerolog/log"
)

// ControlActivity pairs a controller with a robot. While both are present
// the controller may reach the robot's private topics.
type ControlActivity struct {
	baseActivity
}

func newControlActivity(env *Env, def *ActivityDefinition) Activity {
	a := &ControlActivity{}
	a.init(env, def, a)
	return a
}

func (a *ControlActivity) Join(s *Session, role *Role) (*Participant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, err := a.joinLocked(s, role, false)
	if err != nil {
		return nil, err
	}
	a.grantLocked()
	return p, nil
}

func (a *ControlActivity) JoinInvited(inv *Invitation, s *Session) (*Participant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, err := a.joinInvitedLocked(inv, s)
	if err != nil {
		return nil, err
	}
	a.grantLocked()
	return p, nil
}

func (a *ControlActivity) grantLocked() {
	controller, robot := a.pairLocked()
	if controller == nil || robot == nil {
		return
	}
	grantRobotControlAccess(a.env.Directory, robot.User().Name(), controller.User().Name())
	log.Info().
		Str("module", "core.control").
		Str("robot", robot.User().Name()).
		Str("robot_sid", robot.Session().ID()).
		Str("controller", controller.User().Name()).
		Str("controller_sid", controller.Session().ID()).
		Msg("granted control access")
}

func (a *ControlActivity) pairLocked() (controller, robot *Participant) {
	if len(a.participants) < 2 {
		return nil, nil
	}
	return a.firstWithRoleLocked(domain.RoleController), a.firstWithRoleLocked(domain.RoleRobot)
}

// Exit revokes access while the pair is intact. A robot left without a
// controller is exited as well.
func (a *ControlActivity) Exit(p *Participant) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasLocked(p) {
		return false
	}
	if controller, robot := a.pairLocked(); controller != nil && robot != nil {
		denyRobotControlAccess(a.env.Directory, robot.User().Name(), controller.User().Name())
		log.Info().
			Str("module", "core.control").
			Str("robot", robot.User().Name()).
			Str("robot_sid", robot.Session().ID()).
			Str("controller", controller.User().Name()).
			Str("controller_sid", controller.Session().ID()).
			Msg("denied control access")
	}
	a.exitLocked(p)

	if len(a.participants) == 0 || a.firstWithRoleLocked(domain.RoleController) != nil {
		return true
	}
	if robot := a.firstWithRoleLocked(domain.RoleRobot); robot != nil {
		a.exitLocked(robot)
		robot.User().Event(exitActivityEvent(robot))
		log.Info().
			Str("module", "core.control").
			Str("robot", robot.User().Name()).
			Str("sid", robot.Session().ID()).
			Msg("exited control activity since controller exited")
	}
	return true
}

// Invite joins an idle interbot session of the robot synchronously. The
// result is never Pending.
func (a *ControlActivity) Invite(inviter *Participant, user *User, role *Role) domain.InvitationResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.participants) > 1 {
		return domain.Reject("activity is full")
	}
	if inviter.Activity() != Activity(a) || !a.hasLocked(inviter) {
		return domain.Reject("inviter must participate in activity")
	}
	if inviter.Role().Name != domain.RoleController {
		return domain.Reject("inviter must be a controller")
	}
	if role.Name != domain.RoleRobot {
		return domain.Reject("user must be invited to robot role")
	}
	if user.Type() != domain.UserTypeRobot {
		return domain.Reject("invited user must be a robot")
	}
	if !HasActivityRole(user.Capabilities(), a.def, role) {
		return domain.Reject("user cannot support requested role at this time")
	}
	p := a.joinIdleSession(user, a.env.Catalog.Interbot, role)
	if p == nil {
		return domain.Reject("user cannot assume requested role at this time")
	}
	a.grantLocked()
	user.Event(joinActivityEvent(p))
	log.Info().
		Str("module", "core.control").
		Str("robot", user.Name()).
		Str("sid", p.Session().ID()).
		Str("controller", inviter.User().Name()).
		Str("controller_sid", inviter.Session().ID()).
		Msg("accepted control invitation")
	return domain.Accept(nil)
}
