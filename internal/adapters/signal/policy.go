package signal

import "fmt"

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	CloseConn
)

// Policy decides what happens to a connection whose send queue is full.
type Policy interface {
	OnBackpressure(c *Conn) BackpressureAction
}

// DropPolicy loses the frame and keeps the connection.
type DropPolicy struct{}

func (DropPolicy) OnBackpressure(*Conn) BackpressureAction { return DropFrame }

// KickPolicy closes slow connections. Session pings then decide whether
// the session survives.
type KickPolicy struct{}

func (KickPolicy) OnBackpressure(*Conn) BackpressureAction { return CloseConn }

func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	}
	return nil, fmt.Errorf("signal: unknown backpressure policy %q", name)
}
