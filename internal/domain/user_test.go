package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want error
	}{
		{in: "alice"},
		{in: "robot-01.lab@site_2"},
		{in: "", want: ErrUsernameEmpty},
		{in: strings.Repeat("x", MaxUsernameLen+1), want: ErrUsernameTooLong},
		{in: "alice bob", want: ErrUsernameInvalid},
		{in: "a/b", want: ErrUsernameInvalid},
		{in: "a--b", want: ErrUsernameInvalid},
		{in: "xDelimiterx", want: ErrUsernameInvalid},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ValidateName(tc.in), tc.in)
	}
}

func TestParseUserType(t *testing.T) {
	t.Parallel()
	for _, typ := range []UserType{UserTypeAdmin, UserTypeHuman, UserTypeRobot} {
		got, ok := ParseUserType(strings.ToUpper(typ.String()))
		assert.True(t, ok)
		assert.Equal(t, typ, got)
	}
	_, ok := ParseUserType("unknown")
	assert.False(t, ok)
}

func TestStartErrorMatchesReason(t *testing.T) {
	t.Parallel()
	err := error(NewStartError(ReasonNoSuchRole))
	assert.ErrorIs(t, err, NewStartError(ReasonNoSuchRole))
	assert.NotErrorIs(t, err, NewStartError(ReasonPassiveRole))
	assert.False(t, errors.Is(err, ErrNotAuthenticated))
}

func TestRandomString(t *testing.T) {
	t.Parallel()
	seen := make(map[string]struct{})
	for range 100 {
		s := RandomString(16)
		assert.Len(t, s, 16)
		assert.Equal(t, -1, strings.IndexFunc(s, func(r rune) bool { return !strings.ContainsRune(idChars, r) }))
		seen[s] = struct{}{}
	}
	assert.Len(t, seen, 100)
}
