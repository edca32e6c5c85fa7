package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/problem-hunt/huntkit/core"
)

func mintToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

type fakeIdentity struct {
	mu           sync.Mutex
	sess         *core.Session
	refreshFn    func() (*core.Session, error)
	refreshCalls int
	persisted    *core.Session
	setErr       error
	signedOut    bool
}

func (f *fakeIdentity) GetSession(ctx context.Context) (*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess, nil
}

func (f *fakeIdentity) RefreshSession(ctx context.Context) (*core.Session, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.mu.Unlock()
	return fn()
}

func (f *fakeIdentity) SetSession(ctx context.Context, accessToken, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	sess := &core.Session{AccessToken: accessToken, RefreshToken: refreshToken}
	f.sess = sess
	f.persisted = sess
	return nil
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = true
	f.sess = nil
	f.persisted = nil
	return nil
}

func (f *fakeIdentity) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeIdentity) stored() *core.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persisted
}

type fakeNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *fakeNavigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *fakeNavigator) redirects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func newTestManager(idp *fakeIdentity, nav *fakeNavigator) *Manager {
	cfg := Config{Identity: idp}
	if nav != nil {
		cfg.Navigator = nav
	}
	return NewManager(cfg)
}

func TestGetValidAccessTokenNoSession(t *testing.T) {
	m := newTestManager(&fakeIdentity{}, nil)

	token, err := m.GetValidAccessToken(context.Background(), TokenOptions{})
	require.NoError(t, err)
	assert.Empty(t, token, "missing session means unauthenticated, not an error")
}

func TestSkewThreshold(t *testing.T) {
	newIdp := func(ttl time.Duration) *fakeIdentity {
		idp := &fakeIdentity{}
		idp.sess = &core.Session{AccessToken: mintToken(t, ttl), RefreshToken: "ref1"}
		idp.refreshFn = func() (*core.Session, error) {
			return &core.Session{AccessToken: mintToken(t, time.Hour), RefreshToken: "ref2"}, nil
		}
		return idp
	}

	t.Run("31s remaining keeps the token", func(t *testing.T) {
		idp := newIdp(31 * time.Second)
		m := newTestManager(idp, nil)

		token, err := m.GetValidAccessToken(context.Background(), TokenOptions{})
		require.NoError(t, err)
		assert.Equal(t, idp.sess.AccessToken, token)
		assert.Equal(t, 0, idp.calls())
	})

	t.Run("29s remaining triggers a refresh", func(t *testing.T) {
		idp := newIdp(29 * time.Second)
		old := idp.sess.AccessToken
		m := newTestManager(idp, nil)

		token, err := m.GetValidAccessToken(context.Background(), TokenOptions{})
		require.NoError(t, err)
		assert.NotEqual(t, old, token)
		assert.Equal(t, 1, idp.calls())
	})
}

func TestUndecodableTokenFailsOpen(t *testing.T) {
	idp := &fakeIdentity{
		sess: &core.Session{AccessToken: "not-a-jwt", RefreshToken: "ref1"},
	}
	m := newTestManager(idp, nil)

	token, err := m.GetValidAccessToken(context.Background(), TokenOptions{})
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", token, "advisory decode must not turn into a refresh")
	assert.Equal(t, 0, idp.calls())
}

func TestForceRefreshThreeConcurrentCallers(t *testing.T) {
	idp := &fakeIdentity{
		sess: &core.Session{AccessToken: mintToken(t, time.Hour), RefreshToken: "ref1"},
	}
	idp.refreshFn = func() (*core.Session, error) {
		time.Sleep(50 * time.Millisecond)
		return &core.Session{AccessToken: "tok2", RefreshToken: "ref2"}, nil
	}
	m := newTestManager(idp, nil)

	const n = 3
	var wg sync.WaitGroup
	tokens := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.GetValidAccessToken(context.Background(), TokenOptions{ForceRefresh: true})
			// Persistence must be observable the instant a caller gets
			// the new token back.
			if errs[i] == nil {
				stored := idp.stored()
				if stored == nil || stored.AccessToken != tokens[i] {
					errs[i] = errors.New("token returned before persistence")
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, idp.calls(), "three overlapping force-refreshes share one refresh call")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok2", tokens[i])
	}
	assert.Equal(t, "ref2", idp.stored().RefreshToken)
}

func TestPersistenceFailureFailsRefresh(t *testing.T) {
	idp := &fakeIdentity{
		sess:   &core.Session{AccessToken: mintToken(t, time.Hour), RefreshToken: "ref1"},
		setErr: errors.New("disk full"),
	}
	idp.refreshFn = func() (*core.Session, error) {
		return &core.Session{AccessToken: "tok2", RefreshToken: "ref2"}, nil
	}
	m := newTestManager(idp, nil)

	_, err := m.RefreshAccessToken(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist")
}

func TestTerminalFailureSignsOutAndRedirectsOnce(t *testing.T) {
	idp := &fakeIdentity{
		sess: &core.Session{AccessToken: mintToken(t, time.Hour), RefreshToken: "ref1"},
	}
	boom := errors.New("invalid refresh token")
	idp.refreshFn = func() (*core.Session, error) {
		time.Sleep(20 * time.Millisecond)
		return nil, boom
	}
	nav := &fakeNavigator{}
	m := newTestManager(idp, nav)

	const n = 3
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.RefreshAccessToken(context.Background(), "test")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.ErrorIs(t, errs[i], boom, "side effects never swallow the original error")
	}
	idp.mu.Lock()
	assert.True(t, idp.signedOut)
	assert.Nil(t, idp.sess, "session store ends empty")
	idp.mu.Unlock()
	assert.Equal(t, []string{DefaultAuthPath}, nav.redirects(), "redirect fires exactly once")
}

func TestTransientFailureKeepsSession(t *testing.T) {
	idp := &fakeIdentity{
		sess: &core.Session{AccessToken: mintToken(t, time.Hour), RefreshToken: "ref1"},
	}
	idp.refreshFn = func() (*core.Session, error) {
		return nil, errors.New("network timeout")
	}
	nav := &fakeNavigator{}
	m := newTestManager(idp, nav)

	_, err := m.RefreshAccessToken(context.Background(), "test")
	require.Error(t, err)

	idp.mu.Lock()
	assert.False(t, idp.signedOut)
	assert.NotNil(t, idp.sess, "a transient failure leaves the session intact")
	idp.mu.Unlock()
	assert.Empty(t, nav.redirects())
}

func TestClassifiedTerminalError(t *testing.T) {
	idp := &fakeIdentity{
		sess: &core.Session{AccessToken: mintToken(t, time.Hour), RefreshToken: "ref1"},
	}
	idp.refreshFn = func() (*core.Session, error) {
		return nil, &core.AuthError{Class: core.ClassTerminalNotFound, Reason: "stale grant"}
	}
	nav := &fakeNavigator{}
	m := newTestManager(idp, nav)

	_, err := m.RefreshAccessToken(context.Background(), "test")
	require.Error(t, err)
	assert.True(t, idp.signedOut)
	assert.Len(t, nav.redirects(), 1)
}
