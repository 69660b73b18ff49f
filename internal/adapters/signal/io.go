package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client and server envelope operations.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpPublish     = "publish"
	OpPing        = "ping"
	OpPong        = "pong"
	OpEvent       = "event"
	OpError       = "error"
)

// Envelope is the only message shape on the wire in both directions.
type Envelope struct {
	Op    string `json:"op"`
	Path  string `json:"path,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func (h *Hub) writePump(ctx context.Context, c *Conn) {
	defer c.Close()
	mt := websocket.TextMessage
	if c.codec.Binary() {
		mt = websocket.BinaryMessage
	}
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(mt, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", c.sid).Msg("writePump write error")
				return
			}
		}
	}
}

func (h *Hub) readPump(ctx context.Context, c *Conn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", c.sid).Msg("readPump closing")
		c.Close()
		h.unregister(c)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.ws.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", c.sid).Msg("readPump read error")
				return
			}
			h.handleFrame(c, data)
		}
	}
}

func (h *Hub) handleFrame(c *Conn, data []byte) {
	var env Envelope
	if err := c.codec.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", c.sid).Msg("bad envelope")
		h.reply(c, Envelope{Op: OpError, Error: "bad envelope"})
		return
	}

	switch env.Op {
	case OpSubscribe:
		if err := h.subscribe(c, env.Path); err != nil {
			h.reply(c, Envelope{Op: OpError, Path: env.Path, Error: err.Error()})
		}
	case OpUnsubscribe:
		h.unsubscribe(c, env.Path)
	case OpPublish:
		if err := h.clientPublish(c, env.Path, env.Data); err != nil {
			h.reply(c, Envelope{Op: OpError, Path: env.Path, Error: err.Error()})
		}
	case OpPing:
		h.reply(c, Envelope{Op: OpPong})
	default:
		log.Warn().Str("module", "signal").Str("op", env.Op).Msg("unknown op")
		h.reply(c, Envelope{Op: OpError, Error: "unknown op"})
	}
}

func (h *Hub) reply(c *Conn, env Envelope) {
	b, err := c.codec.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("reply marshal")
		return
	}
	h.send(c, b)
}
