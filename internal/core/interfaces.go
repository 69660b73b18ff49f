package core

import (
	"context"
	"time"

	"github.com/dkeye/webcat/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Directory abstracts the publish/subscribe transport.
// Publish is fire-and-forget and must never block on network I/O.
type Directory interface {
	Publish(homePath, topic string, payload any)
	CreatePath(path string)
	RemovePath(path string)
	// Link makes `to` reachable by whoever owns `from`.
	Link(from, to string)
	Unlink(from, to string)
}

// CredentialStore is the persistent user database. Connectivity failures
// are logged by the implementation and reported as false or empty results.
type CredentialStore interface {
	Authenticate(ctx context.Context, username, hash string) bool
	UserType(ctx context.Context, username string) domain.UserType
	ListFriends(ctx context.Context, username string) []string
	SetPassword(ctx context.Context, username, hash string) bool
}

// UserRegistry resolves usernames to live users. Followers and friends are
// held by name and looked up on each fan-out.
type UserRegistry interface {
	// LookupUser returns the cached user or loads it from the store.
	LookupUser(name string) *User
	// Loaded returns the cached user without loading.
	Loaded(name string) *User
	// Unload evicts the user if it is still offline and un-followed.
	Unload(u *User)
}

// VideoChannel is the media resource backing a video stream activity.
type VideoChannel interface {
	ID() string
	// AttachReceiver reports false once the channel is closed.
	AttachReceiver() bool
	RemoveReceiver()
	Close()
}

type VideoChannels interface {
	CreateChannel(activityID string) VideoChannel
}

// Env carries the process-wide collaborators. It is built once at start
// and shared by every user, session and activity.
type Env struct {
	Directory  Directory
	Store      CredentialStore
	Users      UserRegistry
	Catalog    *Catalog
	Videos     VideoChannels
	ICEServers []webrtc.ICEServer
	// PingPeriod is the session ping interval. The advertised pong
	// deadline is twice this value.
	PingPeriod time.Duration
	// MaxMissedPings is the pong credit a session gets on login and pong.
	MaxMissedPings int
}

func (e *Env) maxMissedPings() int {
	if e.MaxMissedPings <= 0 {
		return 2
	}
	return e.MaxMissedPings
}
