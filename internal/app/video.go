package app

import (
	"sync"

	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/domain"
	"github.com/rs/zerolog/log"
)

// VideoChannelManager allocates channel ids for video stream activities.
// Frame forwarding happens outside this server; a channel only tracks
// whether a receiver is attached and whether it is still open.
type VideoChannelManager struct {
	mu       sync.Mutex
	channels map[string]*VideoChannel
}

func NewVideoChannelManager() *VideoChannelManager {
	return &VideoChannelManager{channels: make(map[string]*VideoChannel)}
}

func (m *VideoChannelManager) CreateChannel(activityID string) core.VideoChannel {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := domain.RandomString(16)
	for m.channels[id] != nil {
		id = domain.RandomString(16)
	}
	ch := &VideoChannel{id: id, activityID: activityID, manager: m}
	m.channels[id] = ch
	log.Debug().Str("module", "app.video").Str("channel", id).Str("activity", activityID).Msg("created channel")
	return ch
}

func (m *VideoChannelManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

func (m *VideoChannelManager) unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, id)
}

type VideoChannel struct {
	id         string
	activityID string
	manager    *VideoChannelManager

	mu       sync.Mutex
	receiver bool
	closed   bool
}

func (c *VideoChannel) ID() string { return c.id }

// AttachReceiver marks the receiver endpoint as connected. It fails once the
// channel is closed.
func (c *VideoChannel) AttachReceiver() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.receiver = true
	log.Debug().Str("module", "app.video").Str("channel", c.id).Str("activity", c.activityID).Msg("receiver attached")
	return true
}

func (c *VideoChannel) RemoveReceiver() {
	c.mu.Lock()
	attached := c.receiver
	c.receiver = false
	c.mu.Unlock()
	if attached {
		log.Debug().Str("module", "app.video").Str("channel", c.id).Str("activity", c.activityID).Msg("receiver removed")
	}
}

func (c *VideoChannel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.receiver = false
	c.mu.Unlock()
	c.manager.unregister(c.id)
	log.Debug().Str("module", "app.video").Str("channel", c.id).Msg("closed channel")
}
