package core

import (
	"fmt"

	"github.com/dkeye/webcat/internal/domain"
)

// Role is a named slot in an activity. Active roles may start the
// activity; passive roles can only be invited.
type Role struct {
	Name   string
	Active bool
}

// ActivityFactory builds a fresh activity of one variant.
type ActivityFactory func(env *Env, def *ActivityDefinition) Activity

// ActivityDefinition is the immutable template of an activity type.
type ActivityDefinition struct {
	name    string
	roles   map[string]*Role
	order   []*Role
	factory ActivityFactory
}

// NewActivityDefinition panics on duplicate role names; definitions are
// static configuration built at start.
func NewActivityDefinition(name string, factory ActivityFactory, roles ...*Role) *ActivityDefinition {
	d := &ActivityDefinition{
		name:    name,
		roles:   make(map[string]*Role, len(roles)),
		factory: factory,
	}
	for _, r := range roles {
		if _, dup := d.roles[r.Name]; dup {
			panic(fmt.Sprintf("activity %s: duplicate role %s", name, r.Name))
		}
		d.roles[r.Name] = r
		d.order = append(d.order, r)
	}
	return d
}

func (d *ActivityDefinition) Name() string { return d.name }

func (d *ActivityDefinition) Role(name string) *Role { return d.roles[name] }

func (d *ActivityDefinition) Roles() []*Role {
	out := make([]*Role, len(d.order))
	copy(out, d.order)
	return out
}

func (d *ActivityDefinition) CreateActivity(env *Env) Activity {
	if d.factory == nil {
		return newBaseActivity(env, d)
	}
	return d.factory(env, d)
}

// Capability grants the right to occupy Role in activities of Definition.
type Capability struct {
	Definition *ActivityDefinition
	Role       *Role
}

func (c Capability) Name() string { return c.Definition.Name() + "#" + c.Role.Name }

func (c Capability) Info() domain.CapabilityInfo {
	return domain.CapabilityInfo{Activity: c.Definition.Name(), Role: c.Role.Name}
}

// HasActivityRole is the authorization gate used wherever a role is claimed.
func HasActivityRole(caps []Capability, def *ActivityDefinition, role *Role) bool {
	for _, c := range caps {
		if c.Definition.Name() == def.Name() && c.Role.Name == role.Name {
			return true
		}
	}
	return false
}

// PassiveCapabilities lists the invitable capabilities, the payload of a
// CapabilityUpdate event.
func PassiveCapabilities(caps []Capability) []domain.CapabilityInfo {
	out := make([]domain.CapabilityInfo, 0, len(caps))
	for _, c := range caps {
		if !c.Role.Active {
			out = append(out, c.Info())
		}
	}
	return out
}

// ClientType is a connection category with a fixed capability set.
type ClientType struct {
	name string
	caps []Capability
}

func (c *ClientType) Name() string { return c.name }

func (c *ClientType) Capabilities() []Capability {
	out := make([]Capability, len(c.caps))
	copy(out, c.caps)
	return out
}

// Catalog holds every activity definition and client type.
type Catalog struct {
	definitions map[string]*ActivityDefinition
	clients     map[string]*ClientType

	Control     *ActivityDefinition
	WebRTC      *ActivityDefinition
	VideoStream *ActivityDefinition

	Web      *ClientType
	Interbot *ClientType
}

func NewCatalog() *Catalog {
	c := &Catalog{
		definitions: make(map[string]*ActivityDefinition),
		clients:     make(map[string]*ClientType),
	}
	factories := map[string]ActivityFactory{
		domain.ActivityControl:     newControlActivity,
		domain.ActivityWebRTC:      newWebRTCActivity,
		domain.ActivityVideoStream: newVideoStreamActivity,
	}
	c.Control = c.addDefinition(factories, domain.ActivityControl,
		&Role{Name: domain.RoleController, Active: true},
		&Role{Name: domain.RoleRobot, Active: false})
	c.WebRTC = c.addDefinition(factories, domain.ActivityWebRTC,
		&Role{Name: domain.RoleCaller, Active: true},
		&Role{Name: domain.RoleCallee, Active: false})
	c.VideoStream = c.addDefinition(factories, domain.ActivityVideoStream,
		&Role{Name: domain.RoleSender, Active: false},
		&Role{Name: domain.RoleReceiver, Active: true})

	c.Web = c.addClientType(domain.ClientWeb,
		c.mustCapability(domain.ActivityControl, domain.RoleController),
		c.mustCapability(domain.ActivityWebRTC, domain.RoleCaller),
		c.mustCapability(domain.ActivityWebRTC, domain.RoleCallee),
		c.mustCapability(domain.ActivityVideoStream, domain.RoleReceiver))
	c.Interbot = c.addClientType(domain.ClientInterbot,
		c.mustCapability(domain.ActivityControl, domain.RoleRobot))
	return c
}

func (c *Catalog) addDefinition(factories map[string]ActivityFactory, name string, roles ...*Role) *ActivityDefinition {
	d := NewActivityDefinition(name, factories[name], roles...)
	c.definitions[name] = d
	return d
}

func (c *Catalog) addClientType(name string, caps ...Capability) *ClientType {
	ct := &ClientType{name: name, caps: caps}
	c.clients[name] = ct
	return ct
}

func (c *Catalog) mustCapability(activity, role string) Capability {
	capability, ok := c.Capability(activity, role)
	if !ok {
		panic("no such capability: " + activity + "#" + role)
	}
	return capability
}

func (c *Catalog) Definition(name string) *ActivityDefinition { return c.definitions[name] }

func (c *Catalog) ClientType(name string) *ClientType { return c.clients[name] }

// Capability resolves an (activity, role) pair by name.
func (c *Catalog) Capability(activity, role string) (Capability, bool) {
	d := c.definitions[activity]
	if d == nil {
		return Capability{}, false
	}
	r := d.Role(role)
	if r == nil {
		return Capability{}, false
	}
	return Capability{Definition: d, Role: r}, true
}
