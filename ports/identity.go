package ports

import (
	"context"

	"github.com/problem-hunt/huntkit/core"
)

// Identity is the identity-provider client the session core drives. GetSession
// returns (nil, nil) when no session is stored; refresh failures are expected
// to be classified into core.AuthError at this boundary.
type Identity interface {
	// GetSession returns the currently stored session, or nil when absent.
	GetSession(ctx context.Context) (*core.Session, error)

	// RefreshSession exchanges the stored refresh token for a new session.
	// It does not persist the result; that is the caller's job.
	RefreshSession(ctx context.Context) (*core.Session, error)

	// SetSession durably stores both tokens, replacing any previous session.
	SetSession(ctx context.Context, accessToken, refreshToken string) error

	// SignOut clears the stored session and invalidates it with the provider
	// on a best-effort basis.
	SignOut(ctx context.Context) error
}
