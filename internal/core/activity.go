package core

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dkeye/webcat/internal/domain"
	"github.com/rs/zerolog/log"
)

// MaxParticipants caps every activity variant.
const MaxParticipants = 2

// Activity is a live multi-party session. Join, Exit and Invite run under
// the activity's own lock so cardinality checks and the mutation they guard
// are atomic.
type Activity interface {
	ID() string
	Definition() *ActivityDefinition
	Count() int
	Participants() []*Participant
	Join(s *Session, role *Role) (*Participant, error)
	// JoinInvited joins s in the invitation's role while the inviter is
	// still present. The session may hold that role only once per
	// activity type.
	JoinInvited(inv *Invitation, s *Session) (*Participant, error)
	Exit(p *Participant) bool
	Invite(inviter *Participant, user *User, role *Role) domain.InvitationResult
}

var activityCount atomic.Uint64

func newActivityID() string {
	return domain.RandomString(12) + strconv.FormatUint(activityCount.Add(1), 10)
}

// baseActivity owns the participant map. Variants embed it and wrap the
// *Locked helpers with their cascade rules.
type baseActivity struct {
	env  *Env
	id   string
	def  *ActivityDefinition
	self Activity

	mu           sync.Mutex
	participants map[string]*Participant
	counter      int
}

func (a *baseActivity) init(env *Env, def *ActivityDefinition, self Activity) {
	a.env = env
	a.id = newActivityID()
	a.def = def
	a.self = self
	a.participants = make(map[string]*Participant)
}

func newBaseActivity(env *Env, def *ActivityDefinition) Activity {
	a := &baseActivity{}
	a.init(env, def, a)
	return a
}

func (a *baseActivity) ID() string { return a.id }

func (a *baseActivity) Definition() *ActivityDefinition { return a.def }

func (a *baseActivity) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.participants)
}

func (a *baseActivity) Participants() []*Participant {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.participantsLocked()
}

func (a *baseActivity) participantsLocked() []*Participant {
	out := make([]*Participant, 0, len(a.participants))
	for _, p := range a.participants {
		out = append(out, p)
	}
	return out
}

func (a *baseActivity) Join(s *Session, role *Role) (*Participant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.joinLocked(s, role, false)
}

func (a *baseActivity) JoinInvited(inv *Invitation, s *Session) (*Participant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.joinInvitedLocked(inv, s)
}

func (a *baseActivity) joinInvitedLocked(inv *Invitation, s *Session) (*Participant, error) {
	if !a.hasLocked(inv.Inviter()) {
		return nil, domain.ErrInviterGone
	}
	return a.joinLocked(s, inv.Role(), true)
}

func (a *baseActivity) Exit(p *Participant) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.exitLocked(p)
}

func (a *baseActivity) Invite(*Participant, *User, *Role) domain.InvitationResult {
	return domain.Reject("activity not supported")
}

// joinLocked adds a participant for s in role. With exclusive set the join
// fails if s already holds that role in an activity of the same type; the
// check and the registration are atomic on the session.
func (a *baseActivity) joinLocked(s *Session, role *Role, exclusive bool) (*Participant, error) {
	if len(a.participants) >= MaxParticipants {
		return nil, domain.ErrActivityFull
	}
	a.counter++
	p := newParticipant(fmt.Sprintf("%s#%d", a.id, a.counter), a.self, s, role)
	if exclusive {
		if !s.registerExclusive(p) {
			return nil, domain.ErrSessionOccupied
		}
	} else {
		s.register(p)
	}
	for _, current := range a.participants {
		current.User().Event(joinActivityEvent(p))
	}
	a.participants[p.ID()] = p
	log.Debug().
		Str("module", "core.activity").
		Str("activity", a.id).
		Str("participant", p.ID()).
		Str("user", p.User().Name()).
		Msg("joined")
	return p, nil
}

func (a *baseActivity) exitLocked(p *Participant) bool {
	if _, ok := a.participants[p.ID()]; !ok {
		return false
	}
	delete(a.participants, p.ID())
	p.Session().unregister(p)
	for _, remaining := range a.participants {
		remaining.User().Event(exitActivityEvent(p))
	}
	log.Debug().
		Str("module", "core.activity").
		Str("activity", a.id).
		Str("participant", p.ID()).
		Str("user", p.User().Name()).
		Msg("exited")
	return true
}

func (a *baseActivity) hasLocked(p *Participant) bool {
	_, ok := a.participants[p.ID()]
	return ok
}

func (a *baseActivity) firstWithRoleLocked(name string) *Participant {
	return FirstWithRole(a.participantsLocked(), name)
}

// joinIdleSession joins the first of the user's sessions of client type ct
// that does not already hold role in an activity of this type.
func (a *baseActivity) joinIdleSession(user *User, ct *ClientType, role *Role) *Participant {
	for _, s := range user.Sessions() {
		if s.ClientType() != ct {
			continue
		}
		p, err := a.joinLocked(s, role, true)
		if err == nil {
			return p
		}
	}
	return nil
}
