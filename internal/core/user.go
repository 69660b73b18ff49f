package core

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/dkeye/webcat/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// User aggregates the sessions of one account.
//
// Lock order is Activity, then User, then Session. A User never calls into
// an Activity or another User while holding its own lock.
type User struct {
	env      *Env
	name     string
	kind     domain.UserType
	homePath string
	logger   zerolog.Logger

	mu            sync.Mutex
	status        domain.Status
	sessions      []*Session
	friends       []string
	friendsLoaded bool
	followers     map[string]struct{}
	properties    map[string]any

	invitations *InvitationList
}

func NewUser(env *Env, name string, kind domain.UserType) *User {
	return &User{
		env:         env,
		name:        name,
		kind:        kind,
		homePath:    HomePath(name),
		logger:      log.With().Str("module", "core.user").Str("user", name).Logger(),
		status:      domain.StatusOffline,
		followers:   make(map[string]struct{}),
		properties:  make(map[string]any),
		invitations: NewInvitationList(),
	}
}

func (u *User) Name() string                 { return u.name }
func (u *User) Type() domain.UserType        { return u.kind }
func (u *User) HomePath() string             { return u.homePath }
func (u *User) Invitations() *InvitationList { return u.invitations }

func (u *User) Status() domain.Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

func (u *User) Sessions() []*Session {
	u.mu.Lock()
	defer u.mu.Unlock()
	return slices.Clone(u.sessions)
}

func (u *User) Session(id string) *Session {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.sessionLocked(id)
}

func (u *User) sessionLocked(id string) *Session {
	for _, s := range u.sessions {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

func (u *User) Properties() map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return maps.Clone(u.properties)
}

func (u *User) Friends() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return slices.Clone(u.friends)
}

func (u *User) FollowerCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.followers)
}

// Capabilities is the union of the session client types' capabilities plus
// whatever the reported device properties imply.
func (u *User) Capabilities() []Capability {
	u.mu.Lock()
	defer u.mu.Unlock()
	var caps []Capability
	for _, s := range u.sessions {
		caps = append(caps, s.ClientType().Capabilities()...)
	}
	return append(caps, u.propertyCapabilitiesLocked()...)
}

// propertyCapabilitiesLocked maps a reported "ipcamera" device to the video
// stream sender role. The device list has no fixed schema; anything that
// does not look like a list of named devices is ignored.
func (u *User) propertyCapabilitiesLocked() []Capability {
	if u.env.Catalog == nil {
		return nil
	}
	var names []string
	switch devices := u.properties[domain.PropertyDevices].(type) {
	case []any:
		for _, d := range devices {
			if m, ok := d.(map[string]any); ok {
				if n, ok := m["name"].(string); ok {
					names = append(names, n)
				}
			}
		}
	case []map[string]any:
		for _, m := range devices {
			if n, ok := m["name"].(string); ok {
				names = append(names, n)
			}
		}
	}
	var caps []Capability
	for _, n := range names {
		if n == "ipcamera" {
			if c, ok := u.env.Catalog.Capability(domain.ActivityVideoStream, domain.RoleSender); ok {
				caps = append(caps, c)
			}
		}
	}
	return caps
}

func (u *User) HasCapability(activity, role string) bool {
	for _, c := range u.Capabilities() {
		if c.Definition.Name() == activity && c.Role.Name == role {
			return true
		}
	}
	return false
}

func (u *User) PassiveCapabilities() []domain.CapabilityInfo {
	return PassiveCapabilities(u.Capabilities())
}

func (u *User) AllParticipations() []*Participant {
	var out []*Participant
	for _, s := range u.Sessions() {
		out = append(out, s.Participations()...)
	}
	return out
}

func (u *User) Info() domain.UserInfo {
	return domain.UserInfo{
		Username:     u.name,
		Type:         u.kind.String(),
		Status:       u.Status(),
		Capabilities: u.PassiveCapabilities(),
		Properties:   u.Properties(),
	}
}

// FriendsInfo describes every friend keyed by username.
func (u *User) FriendsInfo() map[string]domain.UserInfo {
	out := make(map[string]domain.UserInfo)
	for _, name := range u.Friends() {
		if f := u.env.Users.LookupUser(name); f != nil {
			out[name] = f.Info()
		}
	}
	return out
}

// Event publishes ev on this user's event topic.
func (u *User) Event(ev domain.UserEvent) {
	u.env.Directory.Publish(u.homePath, TopicUserEvent, ev)
}

func (u *User) Follow(follower string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.followers[follower] = struct{}{}
}

func (u *User) Unfollow(follower string) {
	u.mu.Lock()
	delete(u.followers, follower)
	evict := u.evictableLocked()
	u.mu.Unlock()
	if evict {
		u.env.Users.Unload(u)
	}
}

// Evictable reports whether the user is offline and un-followed.
func (u *User) Evictable() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.evictableLocked()
}

func (u *User) evictableLocked() bool {
	return u.status == domain.StatusOffline && len(u.followers) == 0
}

// eachFollower resolves follower names at call time; followers that were
// evicted meanwhile are skipped.
func (u *User) eachFollower(fn func(f *User)) {
	u.mu.Lock()
	names := slices.Collect(maps.Keys(u.followers))
	u.mu.Unlock()
	for _, name := range names {
		if f := u.env.Users.Loaded(name); f != nil {
			fn(f)
		}
	}
}

func (u *User) notifyStatus(status domain.Status) {
	u.eachFollower(func(f *User) { f.Event(statusUpdateEvent(u, status)) })
}

func (u *User) notifyCapabilityUpdate() {
	ev := capabilityUpdateEvent(u, u.PassiveCapabilities())
	u.Event(ev)
	u.eachFollower(func(f *User) { f.Event(ev) })
}

func (u *User) notifyPropertyUpdate() {
	ev := propertyUpdateEvent(u, u.Properties())
	u.Event(ev)
	u.eachFollower(func(f *User) { f.Event(ev) })
}

// Login authenticates against the credential store and begins a session of
// the given client type. Failures are logged and reported as false.
func (u *User) Login(ctx context.Context, sessionID, hash string, client *ClientType) bool {
	if !u.env.Store.Authenticate(ctx, u.name, hash) {
		u.logger.Info().Str("sid", sessionID).Str("client", client.Name()).Msg("login failed")
		return false
	}
	u.logger.Info().Str("sid", sessionID).Str("client", client.Name()).Msg("login")
	u.BeginSession(sessionID, client)
	return true
}

// Logout ends the session. Robots also drop their reported properties.
func (u *User) Logout(sessionID string) {
	u.EndSession(sessionID)
	if u.kind == domain.UserTypeRobot {
		u.ClearProperties()
	}
	u.logger.Info().Str("sid", sessionID).Msg("logout")
}

// SystemLogout forces every session of the user to end.
func (u *User) SystemLogout() {
	u.Event(systemLogoutEvent(u))
	for _, s := range u.Sessions() {
		u.EndSession(s.ID())
	}
}

func (u *User) BeginSession(sessionID string, client *ClientType) {
	u.mu.Lock()
	if u.sessionLocked(sessionID) != nil {
		u.mu.Unlock()
		return
	}
	u.sessions = append(u.sessions, newSession(u, sessionID, client, u.env.maxMissedPings()))
	cameOnline := u.status == domain.StatusOffline
	if cameOnline {
		u.status = domain.StatusOnline
	}
	u.mu.Unlock()

	if cameOnline {
		u.notifyStatus(domain.StatusOnline)
		u.followFriends()
	}
	u.notifyCapabilityUpdate()
}

func (u *User) EndSession(sessionID string) {
	s := u.Session(sessionID)
	if s == nil {
		return
	}
	s.ExitAllActivities()

	u.mu.Lock()
	i := slices.Index(u.sessions, s)
	if i < 0 {
		u.mu.Unlock()
		return
	}
	u.sessions = slices.Delete(u.sessions, i, i+1)
	wentOffline := len(u.sessions) == 0
	if wentOffline {
		u.status = domain.StatusOffline
	}
	u.mu.Unlock()

	u.notifyCapabilityUpdate()
	if !wentOffline {
		return
	}
	u.notifyStatus(domain.StatusOffline)
	u.invitations.RejectAll()
	u.unfollowFriends()
	if u.Evictable() {
		u.env.Users.Unload(u)
	}
}

func (u *User) followFriends() {
	u.mu.Lock()
	loaded := u.friendsLoaded
	u.mu.Unlock()
	if !loaded {
		names := u.env.Store.ListFriends(context.Background(), u.name)
		sort.Strings(names)
		friends := make([]string, 0, len(names))
		for _, name := range names {
			if u.env.Users.LookupUser(name) != nil {
				friends = append(friends, name)
			}
		}
		u.mu.Lock()
		u.friends = friends
		u.friendsLoaded = true
		u.mu.Unlock()
	}
	for _, name := range u.Friends() {
		if f := u.env.Users.LookupUser(name); f != nil {
			f.Follow(u.name)
		}
	}
}

func (u *User) unfollowFriends() {
	for _, name := range u.Friends() {
		if f := u.env.Users.Loaded(name); f != nil {
			f.Unfollow(u.name)
		}
	}
}

// FindFriend returns the named friend, loading it if needed.
func (u *User) FindFriend(name string) *User {
	if !slices.Contains(u.Friends(), name) {
		return nil
	}
	return u.env.Users.LookupUser(name)
}

func (u *User) UpdateProperties(props map[string]any) {
	u.mu.Lock()
	maps.Copy(u.properties, props)
	u.mu.Unlock()
	u.logger.Debug().Msg("properties updated")
	u.notifyPropertyUpdate()
}

func (u *User) ClearProperties() {
	u.mu.Lock()
	clear(u.properties)
	u.mu.Unlock()
	u.logger.Debug().Msg("properties cleared")
	u.notifyPropertyUpdate()
}

// OnSystemInfoResponse merges a robot's system info into its properties.
// Properties can add capabilities, so followers get a capability update too.
func (u *User) OnSystemInfoResponse(props map[string]any) {
	u.UpdateProperties(props)
	u.notifyCapabilityUpdate()
}

// ExecuteSessionPing ends sessions that ran out of pong credit, charges the
// survivors one credit and pings them.
func (u *User) ExecuteSessionPing() {
	sessions := u.Sessions()
	if len(sessions) == 0 {
		return
	}
	for _, s := range sessions {
		if s.tickPong() {
			continue
		}
		u.logger.Info().Str("sid", s.ID()).Msg("stale session")
		u.EndSession(s.ID())
	}
	if len(u.Sessions()) == 0 {
		return
	}
	u.env.Directory.Publish(u.homePath, TopicSessionPing,
		domain.SessionPing{PeriodMillis: 2 * u.env.PingPeriod.Milliseconds()})
}

func (u *User) OnSessionPong(sessionID string) {
	if s := u.Session(sessionID); s != nil {
		s.SetPongCount(u.env.maxMissedPings())
	}
}
