package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrRateLimited   = errors.New("too many login attempts")
	ErrUnknownClient = errors.New("unknown client type")
)

// TopicHandler receives a client publish on one of the sender's own topics.
type TopicHandler func(u *core.User, sessionID string, payload any)

// Service is the RPC surface over the user registry.
type Service struct {
	Env     *core.Env
	Users   *UserManager
	Tasks   *TaskManager
	Limiter *LoginRateLimiter

	SystemInfoDelay time.Duration
}

// Login authenticates username and begins a session of the named client
// type. The returned session id identifies the session in later calls.
func (s *Service) Login(ctx context.Context, username, hash, client string) (string, error) {
	if err := domain.ValidateName(username); err != nil {
		return "", fmt.Errorf("login %q: %w", username, err)
	}
	ct := s.Env.Catalog.ClientType(client)
	if ct == nil {
		return "", fmt.Errorf("login %q: %w: %s", username, ErrUnknownClient, client)
	}
	if s.Limiter != nil && !s.Limiter.Allow(username) {
		log.Warn().Str("module", "app.service").Str("user", username).Msg("login rate limited")
		return "", ErrRateLimited
	}
	u := s.Users.Acquire(username)
	if u == nil {
		return "", domain.ErrNotAuthenticated
	}
	defer s.Users.Release(u)
	if ct == s.Env.Catalog.Interbot && u.Type() != domain.UserTypeRobot {
		return "", fmt.Errorf("login %q: %w: interbot clients must be robots", username, domain.ErrNotAuthenticated)
	}
	sid := uuid.NewString()
	if !u.Login(ctx, sid, hash, ct) {
		return "", domain.ErrNotAuthenticated
	}
	if s.Limiter != nil {
		s.Limiter.Reset(username)
	}
	if u.Type() == domain.UserTypeRobot && s.Tasks != nil {
		s.Tasks.Schedule(&RequestSystemInfoTask{
			Users:     s.Users,
			Directory: s.Env.Directory,
			Robot:     username,
		}, s.SystemInfoDelay)
	}
	return sid, nil
}

func (s *Service) Logout(username, sessionID string) {
	if u := s.Users.Loaded(username); u != nil {
		u.Logout(sessionID)
	}
}

// User resolves an authenticated session.
func (s *Service) User(username, sessionID string) (*core.User, error) {
	u := s.Users.Loaded(username)
	if u == nil || u.Session(sessionID) == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return u, nil
}

func (s *Service) StartActivity(username, sessionID, activity, role string) (domain.ActivityStartInfo, error) {
	u, err := s.User(username, sessionID)
	if err != nil {
		return domain.ActivityStartInfo{}, domain.NewStartError(domain.ReasonInvalidSession)
	}
	return u.StartActivity(sessionID, activity, role)
}

func (s *Service) ExitActivity(username, sessionID, participantID string) error {
	u, err := s.User(username, sessionID)
	if err != nil {
		return err
	}
	u.ExitActivity(sessionID, participantID)
	return nil
}

func (s *Service) Invite(username, sessionID, participantID, invitee, role string) domain.InvitationResult {
	u, err := s.User(username, sessionID)
	if err != nil {
		return domain.Reject("invalid session")
	}
	return u.Invite(sessionID, participantID, invitee, role)
}

func (s *Service) InvitationReply(username, sessionID, invitationID string, accept bool) (domain.ActivityStartInfo, error) {
	u := s.Users.Loaded(username)
	if u == nil {
		return domain.ActivityStartInfo{}, domain.ErrNotAuthenticated
	}
	return u.InvitationReply(sessionID, invitationID, accept), nil
}

func (s *Service) SetPassword(ctx context.Context, username, sessionID, oldHash, newHash string) (bool, error) {
	u, err := s.User(username, sessionID)
	if err != nil {
		return false, err
	}
	return u.SetPassword(ctx, sessionID, oldHash, newHash), nil
}

func (s *Service) Friends(username, sessionID string) (map[string]domain.UserInfo, error) {
	u, err := s.User(username, sessionID)
	if err != nil {
		return nil, err
	}
	return u.FriendsInfo(), nil
}

// TopicHandlers maps topics relative to a user's home to their handlers.
func (s *Service) TopicHandlers() map[string]TopicHandler {
	return map[string]TopicHandler{
		core.TopicSessionPong: func(u *core.User, sid string, _ any) {
			u.OnSessionPong(sid)
		},
		core.TopicSystemInfoResp: func(u *core.User, sid string, payload any) {
			if u.Type() != domain.UserTypeRobot {
				return
			}
			props, ok := payload.(map[string]any)
			if !ok {
				log.Warn().Str("module", "app.service").Str("user", u.Name()).Str("sid", sid).Msg("malformed system info")
				return
			}
			u.OnSystemInfoResponse(props)
		},
	}
}
