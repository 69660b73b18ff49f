// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxUsernameLen = 64

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameInvalid = errors.New("username contains invalid characters")
)

type UserType int

const (
	UserTypeUnknown UserType = iota
	UserTypeAdmin
	UserTypeHuman
	UserTypeRobot
)

func (t UserType) String() string {
	switch t {
	case UserTypeAdmin:
		return "admin"
	case UserTypeHuman:
		return "human"
	case UserTypeRobot:
		return "robot"
	default:
		return "unknown"
	}
}

// ParseUserType is the inverse of UserType.String.
func ParseUserType(s string) (UserType, bool) {
	switch strings.ToLower(s) {
	case "admin":
		return UserTypeAdmin, true
	case "human":
		return UserTypeHuman, true
	case "robot":
		return UserTypeRobot, true
	}
	return UserTypeUnknown, false
}

type Status string

const (
	StatusOffline Status = "Offline"
	StatusOnline  Status = "Online"
)

// UserInfo is the read-only view sent to friends and to /api/me.
type UserInfo struct {
	Username     string           `json:"username"`
	Type         string           `json:"type"`
	Status       Status           `json:"status"`
	Capabilities []CapabilityInfo `json:"capabilities"`
	Properties   map[string]any   `json:"properties"`
}

// ValidateName checks usernames and password hashes before they reach the
// credential store.
func ValidateName(s string) error {
	if len(s) == 0 {
		return ErrUsernameEmpty
	}
	if len(s) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	for i := 0; i < len(s); i++ {
		if !validChar(s[i]) {
			return ErrUsernameInvalid
		}
	}
	if strings.Contains(s, "--") || strings.Contains(strings.ToLower(s), "delimiter") {
		return ErrUsernameInvalid
	}
	return nil
}

func validChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '@' || ch == '_'
}
