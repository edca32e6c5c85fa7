package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKeyNotFound is returned by stores when a key is absent.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNoSession is returned by identity operations that require a session
	// when none is present.
	ErrNoSession = errors.New("no session")
)

// FailureClass classifies a refresh failure. Transient failures leave the
// session intact and may be retried; terminal classes mean the refresh token
// itself is no longer usable and the user must authenticate again.
type FailureClass int

const (
	ClassTransient FailureClass = iota
	ClassTerminalRevoked
	ClassTerminalNotFound
)

// Terminal reports whether the class requires re-authentication.
func (c FailureClass) Terminal() bool {
	return c == ClassTerminalRevoked || c == ClassTerminalNotFound
}

func (c FailureClass) String() string {
	switch c {
	case ClassTerminalRevoked:
		return "terminal_revoked"
	case ClassTerminalNotFound:
		return "terminal_not_found"
	default:
		return "transient"
	}
}

// AuthError is a classified identity-provider failure. Adapters wrap provider
// error shapes into an AuthError at the boundary so the session core never
// parses free-text messages.
type AuthError struct {
	Class  FailureClass
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s (%s): %v", e.Reason, e.Class, e.Err)
	}
	return fmt.Sprintf("auth: %s (%s)", e.Reason, e.Class)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Provider error strings that mark a refresh token as unusable. Matching is
// a compatibility shim for errors that were not classified at the adapter
// boundary; case-insensitive substring match.
var (
	notFoundPatterns = []string{
		"refresh token not found",
		"session_not_found",
	}
	revokedPatterns = []string{
		"token_revoked",
		"invalid refresh token",
		"invalid grant",
	}
)

// ClassifyMessage maps a provider error message onto a failure class.
func ClassifyMessage(msg string) FailureClass {
	msg = strings.ToLower(msg)
	for _, p := range notFoundPatterns {
		if strings.Contains(msg, p) {
			return ClassTerminalNotFound
		}
	}
	for _, p := range revokedPatterns {
		if strings.Contains(msg, p) {
			return ClassTerminalRevoked
		}
	}
	return ClassTransient
}

// Classify returns the failure class of err. Errors carrying an AuthError
// keep the class assigned at the adapter boundary; anything else falls back
// to message matching.
func Classify(err error) FailureClass {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Class
	}
	return ClassifyMessage(err.Error())
}

// Terminal reports whether err is a terminal refresh failure.
func Terminal(err error) bool {
	return err != nil && Classify(err).Terminal()
}
