// Package signal is the WebSocket publish/subscribe directory. Paths live
// under user homes; a connection may touch its own home and anything a
// path of its home is linked to.
package signal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/webcat/internal/app"
	"github.com/dkeye/webcat/internal/codec"
	"github.com/dkeye/webcat/internal/core"
	"github.com/rs/zerolog/log"
)

var (
	ErrForbidden  = errors.New("forbidden")
	ErrNoSuchPath = errors.New("no such path")
)

type Options struct {
	QueueSize int
	WriteWait time.Duration
	ReadLimit int64
	Policy    Policy
}

func (o *Options) setDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.Policy == nil {
		o.Policy = DropPolicy{}
	}
}

// Hub implements core.Directory over WebSocket connections.
type Hub struct {
	opts Options

	mu       sync.RWMutex
	paths    map[string]struct{}
	links    map[string]map[string]struct{}
	conns    map[*Conn]struct{}
	subs     map[string]map[*Conn]struct{}
	handlers map[string]app.TopicHandler
}

var _ core.Directory = (*Hub)(nil)

func NewHub(opts Options) *Hub {
	opts.setDefaults()
	return &Hub{
		opts:     opts,
		paths:    make(map[string]struct{}),
		links:    make(map[string]map[string]struct{}),
		conns:    make(map[*Conn]struct{}),
		subs:     make(map[string]map[*Conn]struct{}),
		handlers: make(map[string]app.TopicHandler),
	}
}

// Handle routes client publishes on topic, relative to the publisher's own
// home, to fn instead of to subscribers.
func (h *Hub) Handle(topic string, fn app.TopicHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[topic] = fn
}

// Serve runs the connection until the peer goes away or ctx ends.
func (h *Hub) Serve(ctx context.Context, ws WSConn, cd codec.Codec, u *core.User, sid string) {
	c := newConn(ws, cd, u, sid, h.opts.QueueSize)
	h.register(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		c.Close()
	}()
	go h.writePump(ctx, c)
	h.readPump(ctx, c)
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
	for path, conns := range h.subs {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.subs, path)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) CreatePath(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths[path] = struct{}{}
}

// RemovePath drops the path together with its subscriptions and links.
func (h *Hub) RemovePath(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.paths, path)
	for sub := range h.subs {
		if under(sub, path) {
			delete(h.subs, sub)
		}
	}
	delete(h.links, path)
	for from, targets := range h.links {
		delete(targets, path)
		if len(targets) == 0 {
			delete(h.links, from)
		}
	}
}

func (h *Hub) Link(from, to string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	targets := h.links[from]
	if targets == nil {
		targets = make(map[string]struct{})
		h.links[from] = targets
	}
	targets[to] = struct{}{}
}

// Unlink revokes the link and drops subscriptions that relied on it.
func (h *Hub) Unlink(from, to string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if targets := h.links[from]; targets != nil {
		delete(targets, to)
		if len(targets) == 0 {
			delete(h.links, from)
		}
	}
	for sub, conns := range h.subs {
		if !under(sub, to) {
			continue
		}
		for c := range conns {
			if !h.allowedLocked(c.user.Name(), sub) {
				delete(conns, c)
			}
		}
		if len(conns) == 0 {
			delete(h.subs, sub)
		}
	}
}

// Allowed reports whether username may subscribe or publish on path.
func (h *Hub) Allowed(username, path string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.allowedLocked(username, path)
}

func (h *Hub) allowedLocked(username, path string) bool {
	home := core.HomePath(username)
	if under(path, home) {
		return true
	}
	for from, targets := range h.links {
		if !under(from, home) {
			continue
		}
		for to := range targets {
			if under(path, to) {
				return true
			}
		}
	}
	return false
}

// knownLocked reports whether path was created or is an ancestor of a
// created path.
func (h *Hub) knownLocked(path string) bool {
	if _, ok := h.paths[path]; ok {
		return true
	}
	for p := range h.paths {
		if under(p, path) {
			return true
		}
	}
	return false
}

func (h *Hub) subscribe(c *Conn, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.knownLocked(path) {
		return ErrNoSuchPath
	}
	if !h.allowedLocked(c.user.Name(), path) {
		return ErrForbidden
	}
	conns := h.subs[path]
	if conns == nil {
		conns = make(map[*Conn]struct{})
		h.subs[path] = conns
	}
	conns[c] = struct{}{}
	return nil
}

func (h *Hub) unsubscribe(c *Conn, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns := h.subs[path]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.subs, path)
		}
	}
}

func (h *Hub) clientPublish(c *Conn, path string, data any) error {
	h.mu.RLock()
	known := h.knownLocked(path)
	allowed := h.allowedLocked(c.user.Name(), path)
	var handler app.TopicHandler
	if rel, own := strings.CutPrefix(path, c.user.HomePath()); own {
		handler = h.handlers[rel]
	}
	h.mu.RUnlock()

	switch {
	case !known:
		return ErrNoSuchPath
	case !allowed:
		return ErrForbidden
	case handler != nil:
		handler(c.user, c.sid, data)
		return nil
	}
	h.deliver(path, data, c)
	return nil
}

// Publish delivers payload to every subscriber of homePath+topic or of one
// of its ancestors. It never blocks on network I/O.
func (h *Hub) Publish(homePath, topic string, payload any) {
	h.deliver(homePath+topic, payload, nil)
}

func (h *Hub) deliver(path string, payload any, skip *Conn) {
	h.mu.RLock()
	var targets []*Conn
	for sub, conns := range h.subs {
		if !under(path, sub) {
			continue
		}
		for c := range conns {
			if c != skip {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	env := Envelope{Op: OpEvent, Path: path, Data: payload}
	frames := make(map[string]Frame, 2)
	seen := make(map[*Conn]struct{}, len(targets))
	for _, c := range targets {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		f, ok := frames[c.codec.Name()]
		if !ok {
			b, err := c.codec.Marshal(env)
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("path", path).Str("codec", c.codec.Name()).Msg("encode event")
				continue
			}
			f = b
			frames[c.codec.Name()] = f
		}
		h.send(c, f)
	}
}

func (h *Hub) send(c *Conn, f Frame) {
	err := c.TrySend(f)
	if !errors.Is(err, ErrBackpressure) {
		return
	}
	switch h.opts.Policy.OnBackpressure(c) {
	case CloseConn:
		log.Warn().Str("module", "signal").Str("user", c.user.Name()).Str("sid", c.sid).Msg("backpressure: closing connection")
		c.Close()
	default:
		log.Warn().Str("module", "signal").Str("user", c.user.Name()).Str("sid", c.sid).Msg("backpressure: frame dropped")
	}
}

func under(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+"/")
}
