package core

import "time"

// Session represents a live authentication grant issued by the identity
// provider. A session is either fully populated or absent; partial sessions
// are never persisted, and a refresh replaces the session wholesale.
type Session struct {
	AccessToken  string    // short-lived bearer credential
	RefreshToken string    // long-lived credential used to mint new access tokens
	ExpiresAt    time.Time // derived from the access token's exp claim, zero when unknown
}

// Complete reports whether both tokens are present.
func (s *Session) Complete() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != ""
}

// TokensUpdated is broadcast to other processes after a successful refresh so
// they can pick up the new tokens from shared storage instead of refreshing
// independently. Delivery is best effort.
type TokensUpdated struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// EventTokensUpdated is the Type value carried by TokensUpdated messages.
const EventTokensUpdated = "tokens_updated"
