package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	v := NewVerifier("test-secret")

	token := v.Issue("user-42", RoleOrganizer, time.Minute)

	identity, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", identity.UserID)
	assert.Equal(t, RoleOrganizer, identity.Role)
	assert.True(t, identity.IsOrganizer())
}

func TestParseRejectsTamperedToken(t *testing.T) {
	v := NewVerifier("test-secret")
	token := v.Issue("user-42", "attendee", time.Minute)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "no separator", token: strings.ReplaceAll(token, ".", "")},
		{name: "flipped signature", token: token[:len(token)-2] + "xx"},
		{name: "garbage payload", token: "!!notbase64!!." + strings.SplitN(token, ".", 2)[1]},
		{name: "wrong secret", token: NewVerifier("other-secret").Issue("user-42", "attendee", time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("test-secret")
	token := v.Issue("user-42", RoleOrganizer, -time.Minute)

	_, err := v.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestIsOrganizer(t *testing.T) {
	assert.False(t, (*Identity)(nil).IsOrganizer())
	assert.False(t, (&Identity{UserID: "u", Role: "attendee"}).IsOrganizer())
	assert.True(t, (&Identity{UserID: "u", Role: RoleOrganizer}).IsOrganizer())
}
