package core

// Participant is a user's occupancy of one role in one activity through one
// session.
type Participant struct {
	id          string
	activity    Activity
	session     *Session
	role        *Role
	invitations *InvitationList
}

func newParticipant(id string, activity Activity, session *Session, role *Role) *Participant {
	return &Participant{
		id:          id,
		activity:    activity,
		session:     session,
		role:        role,
		invitations: NewInvitationList(),
	}
}

func (p *Participant) ID() string                   { return p.id }
func (p *Participant) Activity() Activity           { return p.activity }
func (p *Participant) Session() *Session            { return p.session }
func (p *Participant) User() *User                  { return p.session.User() }
func (p *Participant) Role() *Role                  { return p.role }
func (p *Participant) Invitations() *InvitationList { return p.invitations }

// ExitActivity cancels the invitations this participant issued and leaves
// the activity.
func (p *Participant) ExitActivity() bool {
	p.invitations.CancelAll()
	return p.activity.Exit(p)
}

func FirstWithRole(ps []*Participant, roleName string) *Participant {
	for _, p := range ps {
		if p.role.Name == roleName {
			return p
		}
	}
	return nil
}

func HasRole(ps []*Participant, def *ActivityDefinition, role *Role) bool {
	for _, p := range ps {
		if p.activity.Definition() == def && p.role.Name == role.Name {
			return true
		}
	}
	return false
}

func HasActivity(ps []*Participant, def *ActivityDefinition) bool {
	for _, p := range ps {
		if p.activity.Definition() == def {
			return true
		}
	}
	return false
}
