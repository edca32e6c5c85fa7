package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want FailureClass
	}{
		{"token_revoked", ClassTerminalRevoked},
		{"Invalid Refresh Token", ClassTerminalRevoked},
		{"invalid grant", ClassTerminalRevoked},
		{"Refresh Token Not Found", ClassTerminalNotFound},
		{"session_not_found", ClassTerminalNotFound},
		{"network timeout", ClassTransient},
		{"connection refused", ClassTransient},
		{"", ClassTransient},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMessage(tt.msg))
		})
	}
}

func TestClassifyPrefersAuthErrorClass(t *testing.T) {
	// The boundary classification wins even when the message would match a
	// terminal pattern.
	err := &AuthError{Class: ClassTransient, Reason: "invalid refresh token (retryable gateway hiccup)"}
	assert.Equal(t, ClassTransient, Classify(err))

	wrapped := fmt.Errorf("refresh: %w", &AuthError{Class: ClassTerminalRevoked, Reason: "revoked"})
	assert.Equal(t, ClassTerminalRevoked, Classify(wrapped))
	assert.True(t, Terminal(wrapped))
}

func TestClassifyFallsBackToMessage(t *testing.T) {
	assert.True(t, Terminal(errors.New("invalid refresh token")))
	assert.False(t, Terminal(errors.New("network timeout")))
	assert.False(t, Terminal(nil))
}

func TestAuthErrorUnwrap(t *testing.T) {
	cause := errors.New("provider status 400")
	err := &AuthError{Class: ClassTerminalRevoked, Reason: "token_revoked", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "terminal_revoked")
}

func TestSessionComplete(t *testing.T) {
	var nilSess *Session
	assert.False(t, nilSess.Complete())
	assert.False(t, (&Session{AccessToken: "a"}).Complete())
	assert.False(t, (&Session{RefreshToken: "r"}).Complete())
	assert.True(t, (&Session{AccessToken: "a", RefreshToken: "r"}).Complete())
}
