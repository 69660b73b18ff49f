package core

import (
	"sync"
	"sync/atomic"

	"github.com/dkeye/webcat/internal/domain"
	"github.com/rs/zerolog/log"
)

// Invitation is a pending offer for a user to join an activity. It is
// registered with both the inviter participant and the invitee user and
// removed from both on its single terminal transition.
type Invitation struct {
	id      string
	inviter *Participant
	user    *User
	role    *Role
	extra   any
	done    atomic.Bool
}

func NewInvitation(inviter *Participant, user *User, role *Role, extra any) *Invitation {
	inv := &Invitation{
		id:      domain.RandomString(10),
		inviter: inviter,
		user:    user,
		role:    role,
		extra:   extra,
	}
	inviter.Invitations().put(inv)
	user.Invitations().put(inv)
	return inv
}

func (inv *Invitation) ID() string            { return inv.id }
func (inv *Invitation) Inviter() *Participant { return inv.inviter }
func (inv *Invitation) User() *User           { return inv.user }
func (inv *Invitation) Role() *Role           { return inv.role }
func (inv *Invitation) Extra() any            { return inv.extra }
func (inv *Invitation) Activity() Activity    { return inv.inviter.Activity() }

// Accept notifies the inviter. Returns false if the invitation was already
// terminal.
func (inv *Invitation) Accept() bool { return inv.reply(true) }

func (inv *Invitation) Reject() bool { return inv.reply(false) }

// Cancel is the inviter's withdrawal; the invitee is notified.
func (inv *Invitation) Cancel() bool {
	if !inv.finish() {
		return false
	}
	inv.user.Event(cancelInvitationEvent(inv))
	return true
}

func (inv *Invitation) reply(accepted bool) bool {
	if !inv.finish() {
		return false
	}
	inv.sendReply(accepted)
	return true
}

// claim makes the invitation terminal without notifying anyone. The caller
// must follow up with sendReply.
func (inv *Invitation) claim() bool { return inv.finish() }

func (inv *Invitation) sendReply(accepted bool) {
	inv.inviter.User().Event(invitationReplyEvent(inv, accepted))
}

func (inv *Invitation) finish() bool {
	if !inv.done.CompareAndSwap(false, true) {
		return false
	}
	inv.user.Invitations().remove(inv.id)
	inv.inviter.Invitations().remove(inv.id)
	return true
}

// InvitationList is a pending-invitation map keyed by invitation id.
type InvitationList struct {
	mu      sync.Mutex
	entries map[string]*Invitation
}

func NewInvitationList() *InvitationList {
	return &InvitationList{entries: make(map[string]*Invitation)}
}

func (l *InvitationList) Get(id string) *Invitation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[id]
}

func (l *InvitationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *InvitationList) put(inv *Invitation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[inv.id] = inv
}

func (l *InvitationList) remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, id)
}

func (l *InvitationList) snapshot() []*Invitation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Invitation, 0, len(l.entries))
	for _, inv := range l.entries {
		out = append(out, inv)
	}
	return out
}

func (l *InvitationList) CancelAll() {
	invs := l.snapshot()
	if len(invs) == 0 {
		return
	}
	log.Debug().Str("module", "core.invitation").Int("count", len(invs)).Msg("cancelling all invitations")
	for _, inv := range invs {
		inv.Cancel()
	}
}

func (l *InvitationList) RejectAll() {
	invs := l.snapshot()
	if len(invs) == 0 {
		return
	}
	log.Debug().Str("module", "core.invitation").Int("count", len(invs)).Msg("rejecting all invitations")
	for _, inv := range invs {
		inv.Reject()
	}
}
