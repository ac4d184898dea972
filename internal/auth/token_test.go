package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/model"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour, "task-manager")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tokens.now = func() time.Time { return now }

	token, expires, err := tokens.Issue("alice")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	sub, err := tokens.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestTokensRejects(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tokens := NewTokens("secret", time.Hour, "task-manager")
	tokens.now = func() time.Time { return now }
	token, _, err := tokens.Issue("alice")
	require.NoError(t, err)

	expired := NewTokens("secret", time.Hour, "task-manager")
	expired.now = func() time.Time { return now.Add(2 * time.Hour) }

	foreign := NewTokens("other", time.Hour, "task-manager")
	foreign.now = tokens.now

	otherIssuer := NewTokens("secret", time.Hour, "someone-else")
	otherIssuer.now = tokens.now

	tests := []struct {
		name   string
		tokens *Tokens
		token  string
	}{
		{"expired", expired, token},
		{"wrong secret", foreign, token},
		{"wrong issuer", otherIssuer, token},
		{"garbage", tokens, "not.a.jwt"},
		{"empty", tokens, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.tokens.Resolve(tt.token)
			assert.True(t, errors.Is(err, model.ErrInvalidToken), "got %v", err)
		})
	}
}

func TestIssueEmptySubject(t *testing.T) {
	_, _, err := NewTokens("secret", time.Hour, "").Issue("")
	assert.Error(t, err)
}
