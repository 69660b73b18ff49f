package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/webcat/internal/codec"
	"github.com/dkeye/webcat/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Frame is an encoded envelope ready for the wire.
type Frame []byte

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn is one WebSocket bound to an authenticated user session.
type Conn struct {
	ws    WSConn
	codec codec.Codec
	user  *core.User
	sid   string
	send  chan Frame

	mu     sync.RWMutex
	closed bool
}

func newConn(ws WSConn, cd codec.Codec, u *core.User, sid string, queue int) *Conn {
	return &Conn{
		ws:    ws,
		codec: cd,
		user:  u,
		sid:   sid,
		send:  make(chan Frame, queue),
	}
}

func (c *Conn) User() *core.User   { return c.user }
func (c *Conn) SessionID() string  { return c.sid }
func (c *Conn) Codec() codec.Codec { return c.codec }

func (c *Conn) TrySend(f Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
	c.mu.Unlock()
}

func (c *Conn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and serves it for the given session.
// The codec is picked with ?codec=json|cbor.
func (h *Hub) HandleWS(ctx context.Context, c *gin.Context, u *core.User, sid string) {
	cd, err := codec.ByName(c.Query("codec"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if h.opts.ReadLimit > 0 {
		ws.SetReadLimit(h.opts.ReadLimit)
	}
	log.Info().Str("module", "signal").Str("user", u.Name()).Str("sid", sid).Str("codec", cd.Name()).Msg("new WS connection")
	go h.Serve(ctx, ws, cd, u, sid)
}
