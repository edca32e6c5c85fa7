package session

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/problem-hunt/huntkit/core"
	"github.com/problem-hunt/huntkit/ports"
)

const (
	// DefaultSkew is the safety margin before actual expiry at which a
	// proactive refresh is triggered. Refresh triggers at <= 30s remaining.
	DefaultSkew = 30 * time.Second

	// DefaultAuthPath is where the navigator redirects after a terminal
	// refresh failure.
	DefaultAuthPath = "/auth"
)

// TokenOptions controls a single GetValidAccessToken call.
type TokenOptions struct {
	RequestID    string // for trace correlation, generated when empty
	Reason       string // free-form cause tag
	ForceRefresh bool
}

// Config wires a Manager. Identity is required; everything else has a
// working default.
type Config struct {
	Identity    ports.Identity
	Broadcaster ports.Broadcaster // nil disables cross-process notifications
	Navigator   ports.Navigator   // nil disables the terminal redirect
	HTTPClient  *http.Client
	Logger      *zerolog.Logger

	APIBaseURL string // base URL for authenticated requests issued via Do
	AuthPath   string
	Skew       time.Duration
	Source     string // identifies this process in broadcast messages
}

// Manager owns the session lifecycle: it decides when a refresh is needed,
// persists refreshed sessions before handing tokens to callers, detects
// terminal auth failures, and issues authenticated HTTP requests with a
// single retry on 401/403.
type Manager struct {
	identity  ports.Identity
	broadcast ports.Broadcaster
	nav       ports.Navigator
	httpc     *http.Client
	log       zerolog.Logger

	apiBase  string
	authPath string
	skew     time.Duration
	source   string

	coord *Coordinator

	mu         sync.Mutex
	lastRemote time.Time // last tokens_updated observed from another process
}

// NewManager creates a session manager from cfg.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		identity:  cfg.Identity,
		broadcast: cfg.Broadcaster,
		nav:       cfg.Navigator,
		httpc:     cfg.HTTPClient,
		apiBase:   cfg.APIBaseURL,
		authPath:  cfg.AuthPath,
		skew:      cfg.Skew,
		source:    cfg.Source,
		log:       zerolog.Nop(),
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	}
	if m.httpc == nil {
		m.httpc = http.DefaultClient
	}
	if m.authPath == "" {
		m.authPath = DefaultAuthPath
	}
	if m.skew == 0 {
		m.skew = DefaultSkew
	}
	if m.source == "" {
		m.source = uuid.New().String()
	}
	m.coord = NewCoordinator(m.doRefresh, &m.log)
	return m
}

// Watch consumes token-update notifications from other processes until ctx is
// cancelled. Without a broadcaster this is a no-op: correctness never depends
// on the channel, it only avoids redundant refreshes.
func (m *Manager) Watch(ctx context.Context) error {
	if m.broadcast == nil {
		return nil
	}
	events, err := m.broadcast.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to token updates: %w", err)
	}
	go func() {
		for ev := range events {
			if ev.Source == m.source {
				continue
			}
			m.mu.Lock()
			m.lastRemote = time.Now()
			m.mu.Unlock()
			m.log.Debug().
				Str("source", ev.Source).
				Time("timestamp", ev.Timestamp).
				Msg("tokens updated by another process")
		}
	}()
	return nil
}

// GetValidAccessToken returns an access token that is good for at least the
// skew window, refreshing first when needed. A missing session is not an
// error: the empty string with a nil error means "unauthenticated".
func (m *Manager) GetValidAccessToken(ctx context.Context, opts TokenOptions) (string, error) {
	if opts.RequestID == "" {
		opts.RequestID = uuid.New().String()
	}
	sess, err := m.identity.GetSession(ctx)
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if !sess.Complete() {
		return "", nil
	}
	if opts.ForceRefresh || m.tokenNeedsRefresh(sess.AccessToken) {
		reason := opts.Reason
		if reason == "" {
			reason = "token_expiring"
		}
		m.log.Debug().
			Str("request_id", opts.RequestID).
			Str("reason", reason).
			Bool("forced", opts.ForceRefresh).
			Msg("access token needs refresh")
		return m.RefreshAccessToken(ctx, reason)
	}
	return sess.AccessToken, nil
}

// tokenNeedsRefresh decodes the access token's exp claim without verifying
// the signature. An undecodable token is treated as not expiring: the decode
// is advisory only, the server stays authoritative and a stale token comes
// back as a 401 which the retry path handles.
func (m *Manager) tokenNeedsRefresh(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) <= m.skew
}

// RefreshAccessToken runs a coordinated refresh and returns the new access
// token. Concurrent calls share one underlying refresh.
func (m *Manager) RefreshAccessToken(ctx context.Context, reason string) (string, error) {
	sess, err := m.coord.Run(ctx, reason)
	if err != nil {
		return "", err
	}
	return sess.AccessToken, nil
}

// doRefresh is the body of one coordinated attempt. Persistence happens here,
// before the attempt settles, so no waiter ever observes a token that is not
// yet durably stored; terminal handling likewise runs exactly once per
// attempt no matter how many callers are waiting.
func (m *Manager) doRefresh(ctx context.Context, requestID, reason string) (*core.Session, error) {
	sess, err := m.identity.RefreshSession(ctx)
	if err != nil {
		if core.Terminal(err) {
			m.handleTerminal(ctx, requestID, err)
		}
		return nil, err
	}
	if !sess.Complete() {
		return nil, fmt.Errorf("refresh returned incomplete session")
	}
	if err := m.identity.SetSession(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
		return nil, fmt.Errorf("persist refreshed session: %w", err)
	}
	if m.broadcast != nil {
		ev := core.TokensUpdated{
			Type:      core.EventTokensUpdated,
			Timestamp: time.Now(),
			Source:    m.source,
		}
		if err := m.broadcast.PublishTokensUpdated(ctx, ev); err != nil {
			// Best effort: a missed broadcast costs one extra refresh
			// in another process, nothing more.
			m.log.Warn().Str("request_id", requestID).Err(err).
				Msg("token update broadcast failed")
		}
	}
	return sess, nil
}

// handleTerminal clears the session and redirects to the auth entry point.
// The cause still propagates to every waiting caller afterwards.
func (m *Manager) handleTerminal(ctx context.Context, requestID string, cause error) {
	m.log.Error().
		Str("request_id", requestID).
		Str("class", core.Classify(cause).String()).
		Err(cause).
		Msg("refresh token unusable, signing out")
	if err := m.identity.SignOut(ctx); err != nil {
		m.log.Warn().Str("request_id", requestID).Err(err).Msg("sign out failed")
	}
	if m.nav != nil {
		m.nav.Redirect(m.authPath)
	}
}

// Do issues an authenticated request against the API base URL. On a 401 or
// 403 it retries exactly once with freshly obtained credentials; a second
// auth failure is returned to the caller as-is.
func (m *Manager) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	requestID := uuid.New().String()
	start := time.Now()
	m.log.Debug().
		Str("event", "request_start").
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Time("start", start).
		Msg("authenticated request")

	token, err := m.GetValidAccessToken(ctx, TokenOptions{
		RequestID: requestID,
		Reason:    "request " + path,
	})
	if err != nil {
		return nil, err
	}
	if token == "" {
		// A session may exist upstream without being loaded here yet;
		// one refresh attempt before giving up.
		token, err = m.RefreshAccessToken(ctx, "no local token")
		if err != nil {
			return nil, err
		}
	}

	resp, err := m.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		m.traceComplete(requestID, start, resp.StatusCode, false)
		return resp, nil
	}
	resp.Body.Close()

	m.log.Debug().
		Str("event", "auth_retry").
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Msg("retrying with fresh credentials")

	token, err = m.retryToken(ctx, start, token)
	if err != nil {
		return nil, err
	}
	resp, err = m.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	m.traceComplete(requestID, start, resp.StatusCode, true)
	return resp, nil
}

// retryToken picks the credential for the single retry after an auth failure.
// If another process refreshed since the request started, its tokens are
// already in the store and re-reading avoids burning a refresh call;
// otherwise force a refresh.
func (m *Manager) retryToken(ctx context.Context, since time.Time, old string) (string, error) {
	m.mu.Lock()
	remote := m.lastRemote.After(since)
	m.mu.Unlock()

	if remote {
		sess, err := m.identity.GetSession(ctx)
		if err == nil && sess.Complete() && sess.AccessToken != old {
			return sess.AccessToken, nil
		}
	}
	return m.RefreshAccessToken(ctx, "auth_retry")
}

func (m *Manager) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, m.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return m.httpc.Do(req)
}

func (m *Manager) traceComplete(requestID string, start time.Time, status int, retried bool) {
	m.log.Debug().
		Str("event", "request_complete").
		Str("request_id", requestID).
		Int("status", status).
		Bool("auth_retry", retried).
		Dur("elapsed", time.Since(start)).
		Msg("authenticated request done")
}
