// Package identity implements the identity-provider client against a
// GoTrue-compatible auth server (Supabase). Provider error shapes are mapped
// into core.AuthError classes here so the session core never parses free-text
// messages.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/problem-hunt/huntkit/core"
	"github.com/problem-hunt/huntkit/ports"
)

const sessionKey = "huntkit:session"

// WalletSigner signs wallet-auth login challenges.
type WalletSigner interface {
	Address() string
	SignMessage(msg []byte) (string, error)
}

// Config wires a Client. BaseURL points at the auth server root, for example
// https://<project>.supabase.co/auth/v1.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Store      ports.Store // optional: persists the session across restarts
	Logger     *zerolog.Logger
}

// Client is a GoTrue HTTP client implementing ports.Identity. The current
// session is held in memory and mirrored to the configured store.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	store   ports.Store
	log     zerolog.Logger

	mu      sync.RWMutex
	current *core.Session
}

// NewClient creates a GoTrue client.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpc:   cfg.HTTPClient,
		store:   cfg.Store,
		log:     zerolog.Nop(),
	}
	if cfg.Logger != nil {
		c.log = *cfg.Logger
	}
	if c.httpc == nil {
		c.httpc = http.DefaultClient
	}
	return c
}

// tokenResponse is the GoTrue token grant response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// errorResponse covers the error shapes GoTrue emits across versions.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.ErrorCode, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// storedSession is the JSON shape persisted to the store.
type storedSession struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// GetSession returns the current session, loading it from the store on first
// use. Returns (nil, nil) when no session is stored anywhere.
func (c *Client) GetSession(ctx context.Context) (*core.Session, error) {
	c.mu.RLock()
	sess := c.current
	c.mu.RUnlock()
	if sess != nil {
		return sess, nil
	}
	if c.store == nil {
		return nil, nil
	}
	raw, err := c.store.Get(ctx, sessionKey)
	if errors.Is(err, core.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var st storedSession
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		// A corrupt record is the same as no session.
		c.log.Warn().Err(err).Msg("discarding unreadable stored session")
		return nil, nil
	}
	sess = &core.Session{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		ExpiresAt:    st.ExpiresAt,
	}
	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()
	return sess, nil
}

// RefreshSession exchanges the stored refresh token for a new session. The
// result is not persisted here; the session manager persists before handing
// tokens out.
func (c *Client) RefreshSession(ctx context.Context) (*core.Session, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.Complete() {
		return nil, &core.AuthError{
			Class:  core.ClassTerminalNotFound,
			Reason: "refresh token not found",
			Err:    core.ErrNoSession,
		}
	}
	var tr tokenResponse
	err = c.post(ctx, "/token?grant_type=refresh_token", map[string]string{
		"refresh_token": sess.RefreshToken,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return sessionFromToken(tr), nil
}

// SetSession replaces the current session wholesale and mirrors it to the
// store.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) error {
	sess := &core.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiryOf(accessToken),
	}
	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	raw, err := json.Marshal(storedSession{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := c.store.Set(ctx, sessionKey, string(raw), 0); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// SignOut revokes the session with the provider on a best-effort basis and
// clears local state unconditionally.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.current
	c.current = nil
	c.mu.Unlock()

	if sess.Complete() {
		if err := c.postAuthorized(ctx, "/logout", sess.AccessToken); err != nil {
			c.log.Warn().Err(err).Msg("provider logout failed")
		}
	}
	if c.store != nil {
		if err := c.store.Delete(ctx, sessionKey); err != nil && !errors.Is(err, core.ErrKeyNotFound) {
			return fmt.Errorf("clear stored session: %w", err)
		}
	}
	return nil
}

// SignInWithPassword performs a password grant and stores the session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*core.Session, error) {
	var tr tokenResponse
	err := c.post(ctx, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return c.adopt(ctx, tr)
}

// SignUp registers a new account and stores the returned session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*core.Session, error) {
	var tr tokenResponse
	err := c.post(ctx, "/signup", map[string]string{
		"email":    email,
		"password": password,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return c.adopt(ctx, tr)
}

// SignInWithWallet performs the wallet-auth flow: fetch a nonce, sign it with
// the wallet key, and exchange the signature for a session.
func (c *Client) SignInWithWallet(ctx context.Context, signer WalletSigner) (*core.Session, error) {
	address := signer.Address()
	var nonce struct {
		Nonce string `json:"nonce"`
	}
	if err := c.post(ctx, "/wallet/nonce", map[string]string{"address": address}, &nonce); err != nil {
		return nil, err
	}
	signature, err := signer.SignMessage([]byte(nonce.Nonce))
	if err != nil {
		return nil, fmt.Errorf("sign login nonce: %w", err)
	}
	var tr tokenResponse
	err = c.post(ctx, "/wallet/verify", map[string]string{
		"address":   address,
		"signature": signature,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return c.adopt(ctx, tr)
}

// adopt stores a freshly granted session.
func (c *Client) adopt(ctx context.Context, tr tokenResponse) (*core.Session, error) {
	sess := sessionFromToken(tr)
	if !sess.Complete() {
		return nil, fmt.Errorf("provider returned incomplete session")
	}
	if err := c.SetSession(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
		return nil, err
	}
	return sess, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return &core.AuthError{Class: core.ClassTransient, Reason: "provider unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postAuthorized(ctx context.Context, path, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// classifyResponse turns a non-2xx provider response into a classified
// AuthError. Server-side failures are always transient; everything else runs
// through the known revoked/not-found message patterns.
func classifyResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var er errorResponse
	_ = json.Unmarshal(raw, &er)
	reason := er.text()
	if reason == "" {
		reason = fmt.Sprintf("provider error %d", resp.StatusCode)
	}
	class := core.ClassTransient
	if resp.StatusCode < 500 {
		// The machine-readable error_code matters even when a human
		// message is present.
		class = core.ClassifyMessage(er.ErrorCode + " " + reason)
	}
	return &core.AuthError{
		Class:  class,
		Reason: reason,
		Err:    fmt.Errorf("provider status %d", resp.StatusCode),
	}
}

func sessionFromToken(tr tokenResponse) *core.Session {
	sess := &core.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		sess.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else {
		sess.ExpiresAt = expiryOf(tr.AccessToken)
	}
	return sess
}

// expiryOf reads the exp claim without verifying the signature; the zero time
// when the token does not decode.
func expiryOf(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
