package domain

import "errors"

var (
	ErrActivityFull     = errors.New("activity is full")
	ErrSessionOccupied  = errors.New("session already holds this role")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInviterGone      = errors.New("inviter left the activity")
)

// StartReason enumerates why startActivity refused a request.
type StartReason string

const (
	ReasonInvalidSession StartReason = "InvalidSession"
	ReasonNoSuchActivity StartReason = "NoSuchActivity"
	ReasonNoSuchRole     StartReason = "NoSuchRole"
	ReasonPassiveRole    StartReason = "PassiveRole"
)

// StartError is the typed fault returned to RPC callers for invalid input.
type StartError struct {
	Reason StartReason
}

func NewStartError(reason StartReason) *StartError {
	return &StartError{Reason: reason}
}

func (e *StartError) Error() string { return string(e.Reason) }

// Is matches any StartError carrying the same reason.
func (e *StartError) Is(target error) bool {
	var other *StartError
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == e.Reason
}
