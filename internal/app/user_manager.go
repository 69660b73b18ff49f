package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	pingBatchSize  = 20
	pingBatchPause = 50 * time.Millisecond
)

// UserManager is the process-wide user registry. Users are loaded lazily on
// first lookup and evicted once they are offline and nobody follows them.
type UserManager struct {
	env *core.Env

	mu    sync.RWMutex
	users map[string]*core.User
	// pins counts in-flight logins per name; a pinned user is never evicted.
	pins map[string]int
}

// NewUserManager installs the manager as env.Users.
func NewUserManager(env *core.Env) *UserManager {
	m := &UserManager{
		env:   env,
		users: make(map[string]*core.User),
		pins:  make(map[string]int),
	}
	env.Users = m
	return m
}

// GetUser returns the cached user or loads it from the credential store.
// Invalid names and accounts that are neither human nor robot yield nil.
func (m *UserManager) GetUser(name string) *core.User {
	if err := domain.ValidateName(name); err != nil {
		log.Debug().Str("module", "app.users").Str("user", name).Err(err).Msg("rejected username")
		return nil
	}
	m.mu.RLock()
	u, ok := m.users[name]
	m.mu.RUnlock()
	if ok {
		return u
	}

	kind := m.env.Store.UserType(context.Background(), name)
	if kind != domain.UserTypeHuman && kind != domain.UserTypeRobot {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok = m.users[name]; ok {
		return u
	}
	u = core.NewUser(m.env, name, kind)
	core.CreateEventPaths(m.env.Directory, name, kind)
	m.users[name] = u
	log.Info().Str("module", "app.users").Str("user", name).Str("type", kind.String()).Msg("loaded user")
	return u
}

func (m *UserManager) LookupUser(name string) *core.User { return m.GetUser(name) }

func (m *UserManager) Loaded(name string) *core.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[name]
}

// Acquire is GetUser for a login attempt. The returned user stays
// registered until the matching Release.
func (m *UserManager) Acquire(name string) *core.User {
	for {
		u := m.GetUser(name)
		if u == nil {
			return nil
		}
		m.mu.Lock()
		if m.users[name] == u {
			m.pins[name]++
			m.mu.Unlock()
			return u
		}
		m.mu.Unlock()
	}
}

// Release drops a pin taken by Acquire and evicts the user if nothing else
// keeps it.
func (m *UserManager) Release(u *core.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.pins[u.Name()]; n > 1 {
		m.pins[u.Name()] = n - 1
	} else {
		delete(m.pins, u.Name())
	}
	m.unloadLocked(u)
}

// Unload evicts u if it is still the registered instance, still evictable
// and no login is in flight for it.
func (m *UserManager) Unload(u *core.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unloadLocked(u)
}

func (m *UserManager) unloadLocked(u *core.User) {
	if m.users[u.Name()] != u || m.pins[u.Name()] > 0 || !u.Evictable() {
		return
	}
	delete(m.users, u.Name())
	log.Info().Str("module", "app.users").Str("user", u.Name()).Msg("evicted user")
}

func (m *UserManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

func (m *UserManager) snapshot() []*core.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out
}

// PingAll runs one session ping round, pausing between batches so a large
// registry does not flood the transport.
func (m *UserManager) PingAll(ctx context.Context) {
	users := m.snapshot()
	for i, u := range users {
		if i > 0 && i%pingBatchSize == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(pingBatchPause):
			}
		}
		u.ExecuteSessionPing()
	}
}

// RunPingLoop pings every period until ctx is done.
func (m *UserManager) RunPingLoop(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	log.Info().Str("module", "app.users").Dur("period", period).Msg("session ping loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.users").Msg("session ping loop stopped")
			return nil
		case <-ticker.C:
			m.PingAll(ctx)
		}
	}
}
