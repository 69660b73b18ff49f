package core

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Session is one authenticated connection of a user. Its lock is a leaf:
// nothing else is acquired while it is held.
type Session struct {
	user   *User
	id     string
	client *ClientType

	mu           sync.Mutex
	participants map[string]*Participant
	pongCount    int
}

func newSession(user *User, id string, client *ClientType, pongCount int) *Session {
	return &Session{
		user:         user,
		id:           id,
		client:       client,
		participants: make(map[string]*Participant),
		pongCount:    pongCount,
	}
}

func (s *Session) User() *User             { return s.user }
func (s *Session) ID() string              { return s.id }
func (s *Session) ClientType() *ClientType { return s.client }

func (s *Session) Participant(id string) *Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participants[id]
}

func (s *Session) Participations() []*Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	return out
}

func (s *Session) register(p *Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID()] = p
}

// registerExclusive registers p unless the session already occupies the
// same role in an activity of the same type.
func (s *Session) registerExclusive(p *Participant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.participants {
		if cur.Activity().Definition() == p.Activity().Definition() && cur.Role().Name == p.Role().Name {
			return false
		}
	}
	s.participants[p.ID()] = p
	return true
}

func (s *Session) unregister(p *Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, p.ID())
}

// ExitAllActivities leaves every activity the session participates in.
func (s *Session) ExitAllActivities() {
	ps := s.Participations()
	if len(ps) == 0 {
		return
	}
	log.Debug().
		Str("module", "core.session").
		Str("user", s.user.Name()).
		Str("sid", s.id).
		Int("count", len(ps)).
		Msg("exit all activities")
	for _, p := range ps {
		p.ExitActivity()
	}
}

func (s *Session) PongCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pongCount
}

func (s *Session) SetPongCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pongCount = n
}

// tickPong consumes one pong credit. It reports false, without consuming,
// when the session has none left.
func (s *Session) tickPong() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pongCount <= 0 {
		return false
	}
	s.pongCount--
	return true
}
