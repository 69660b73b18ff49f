// Package coretest provides in-memory collaborators for exercising the
// orchestration core without a transport or database.
package coretest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/domain"
)

type Published struct {
	Home    string
	Topic   string
	Payload any
}

// Directory records everything the core asks of the transport.
type Directory struct {
	mu        sync.Mutex
	published []Published
	paths     map[string]bool
	links     map[string]map[string]bool
	linkCalls int
	unlinks   int
}

func NewDirectory() *Directory {
	return &Directory{
		paths: make(map[string]bool),
		links: make(map[string]map[string]bool),
	}
}

func (d *Directory) Publish(home, topic string, payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, Published{Home: home, Topic: topic, Payload: payload})
}

func (d *Directory) CreatePath(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paths[path] = true
}

func (d *Directory) RemovePath(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.paths, path)
}

func (d *Directory) Link(from, to string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.links[from] == nil {
		d.links[from] = make(map[string]bool)
	}
	d.links[from][to] = true
	d.linkCalls++
}

func (d *Directory) Unlink(from, to string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.links[from], to)
	d.unlinks++
}

func (d *Directory) HasPath(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paths[path]
}

func (d *Directory) Linked(from, to string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.links[from][to]
}

// LinkCounts returns the number of Link and Unlink calls so far.
func (d *Directory) LinkCounts() (links, unlinks int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.linkCalls, d.unlinks
}

func (d *Directory) Published() []Published {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.published)
}

// On returns the payloads published on topic under the user's home.
func (d *Directory) On(username, topic string) []any {
	home := core.HomePath(username)
	var out []any
	for _, p := range d.Published() {
		if p.Home == home && p.Topic == topic {
			out = append(out, p.Payload)
		}
	}
	return out
}

// Events returns the user events delivered to username, optionally filtered
// by type.
func (d *Directory) Events(username string, types ...domain.EventType) []domain.UserEvent {
	var out []domain.UserEvent
	for _, p := range d.On(username, core.TopicUserEvent) {
		ev, ok := p.(domain.UserEvent)
		if !ok {
			continue
		}
		if len(types) == 0 || slices.Contains(types, ev.Type) {
			out = append(out, ev)
		}
	}
	return out
}

func (d *Directory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = nil
}

type account struct {
	hash string
	kind domain.UserType
}

// Store is an in-memory credential store. Friendships are symmetric.
type Store struct {
	mu       sync.Mutex
	accounts map[string]account
	friends  map[string][]string
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]account),
		friends:  make(map[string][]string),
	}
}

func (s *Store) AddUser(name, hash string, kind domain.UserType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[name] = account{hash: hash, kind: kind}
}

func (s *Store) MakeFriends(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends[a] = append(s.friends[a], b)
	s.friends[b] = append(s.friends[b], a)
}

func (s *Store) Authenticate(_ context.Context, username, hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	return ok && a.hash == hash
}

func (s *Store) UserType(_ context.Context, username string) domain.UserType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[username].kind
}

func (s *Store) ListFriends(_ context.Context, username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.friends[username])
}

func (s *Store) SetPassword(_ context.Context, username, hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	if !ok {
		return false
	}
	a.hash = hash
	s.accounts[username] = a
	return true
}

// Registry is a minimal user registry with the same load and eviction rules
// as the application one.
type Registry struct {
	env   *core.Env
	mu    sync.Mutex
	users map[string]*core.User
}

func (r *Registry) LookupUser(name string) *core.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.users[name]; u != nil {
		return u
	}
	kind := r.env.Store.UserType(context.Background(), name)
	if kind != domain.UserTypeHuman && kind != domain.UserTypeRobot {
		return nil
	}
	u := core.NewUser(r.env, name, kind)
	core.CreateEventPaths(r.env.Directory, name, kind)
	r.users[name] = u
	return u
}

func (r *Registry) Loaded(name string) *core.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[name]
}

func (r *Registry) Unload(u *core.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.users[u.Name()] == u && u.Evictable() {
		delete(r.users, u.Name())
	}
}

type Channel struct {
	id       string
	mu       sync.Mutex
	attached int
	removed  int
	isClosed bool
}

func (c *Channel) ID() string { return c.id }

func (c *Channel) AttachReceiver() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return false
	}
	c.attached++
	return true
}

func (c *Channel) Attached() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

func (c *Channel) RemoveReceiver() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed++
}

func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isClosed = true
}

func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosed
}

func (c *Channel) Removed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed
}

type Videos struct {
	mu       sync.Mutex
	Channels []*Channel
}

func (v *Videos) CreateChannel(activityID string) core.VideoChannel {
	v.mu.Lock()
	defer v.mu.Unlock()
	c := &Channel{id: "ch-" + activityID}
	v.Channels = append(v.Channels, c)
	return c
}

func (v *Videos) Last() *Channel {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.Channels) == 0 {
		return nil
	}
	return v.Channels[len(v.Channels)-1]
}

// World bundles an Env wired to the fakes.
type World struct {
	Env       *core.Env
	Directory *Directory
	Store     *Store
	Users     *Registry
	Videos    *Videos
}

func NewWorld() *World {
	w := &World{
		Directory: NewDirectory(),
		Store:     NewStore(),
		Videos:    &Videos{},
	}
	w.Env = &core.Env{
		Directory:      w.Directory,
		Store:          w.Store,
		Catalog:        core.NewCatalog(),
		Videos:         w.Videos,
		PingPeriod:     10 * time.Second,
		MaxMissedPings: 2,
	}
	w.Users = &Registry{env: w.Env, users: make(map[string]*core.User)}
	w.Env.Users = w.Users
	return w
}

// Human registers an account and returns the loaded user.
func (w *World) Human(name string) *core.User {
	w.Store.AddUser(name, name+"-pw", domain.UserTypeHuman)
	return w.Users.LookupUser(name)
}

func (w *World) Robot(name string) *core.User {
	w.Store.AddUser(name, name+"-pw", domain.UserTypeRobot)
	return w.Users.LookupUser(name)
}

// Friends must be called before either user begins a session.
func (w *World) Friends(a, b string) {
	w.Store.MakeFriends(a, b)
}

func (w *World) Web(u *core.User, sid string) *core.Session {
	u.BeginSession(sid, w.Env.Catalog.Web)
	return u.Session(sid)
}

func (w *World) Interbot(u *core.User, sid string) *core.Session {
	u.BeginSession(sid, w.Env.Catalog.Interbot)
	return u.Session(sid)
}
