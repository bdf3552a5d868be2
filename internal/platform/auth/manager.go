package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrAuthFailed is returned when the token endpoint rejects a login.
var ErrAuthFailed = errors.New("authentication failed")

const (
	DefaultTTL              = time.Hour
	DefaultRefreshThreshold = 5 * time.Minute
)

// Credentials are posted form-encoded to the token endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the body returned by POST /auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   *int64 `json:"expires_in,omitempty"`
}

type Options struct {
	// TokenURL is the absolute URL of the token endpoint.
	TokenURL         string
	HTTPClient       *http.Client
	Store            Store
	DefaultTTL       time.Duration
	RefreshThreshold time.Duration
	Timeout          time.Duration
	Logger           zerolog.Logger
	Now              func() time.Time
}

// Manager owns the session token. It loads persisted state in Init, serves
// the token to outgoing calls, and clears it on logout, on a rejected call
// or when it nears expiry. Safe for concurrent use.
type Manager struct {
	tokenURL  string
	client    *http.Client
	store     Store
	ttl       time.Duration
	threshold time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	mu  sync.RWMutex
	tok Token
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		tokenURL:  opts.TokenURL,
		client:    opts.HTTPClient,
		store:     opts.Store,
		ttl:       opts.DefaultTTL,
		threshold: opts.RefreshThreshold,
		timeout:   opts.Timeout,
		logger:    opts.Logger.With().Str("component", "auth").Logger(),
		now:       opts.Now,
	}
	if m.client == nil {
		m.client = http.DefaultClient
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.threshold <= 0 {
		m.threshold = DefaultRefreshThreshold
	}
	if m.timeout <= 0 {
		m.timeout = 10 * time.Second
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Init loads the persisted token. A token that has already expired is
// discarded from the store.
func (m *Manager) Init(ctx context.Context) error {
	tok, ok, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}
	if !ok {
		return nil
	}
	if tok.Expired(m.now()) {
		m.logger.Warn().Time("expires_at", tok.ExpiresAt).Msg("discarding expired persisted token")
		if err := m.store.Clear(ctx); err != nil {
			return fmt.Errorf("init auth: %w", err)
		}
		return nil
	}

	m.mu.Lock()
	m.tok = tok
	m.mu.Unlock()
	m.logger.Debug().Time("expires_at", tok.ExpiresAt).Msg("restored persisted token")
	return nil
}

// Login exchanges credentials for a bearer token and persists it.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.logger.Info().Int("status", resp.StatusCode).Str("username", creds.Username).Msg("login rejected")
		return Token{}, fmt.Errorf("%w: %s", ErrAuthFailed, http.StatusText(resp.StatusCode))
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Token{}, fmt.Errorf("decode login response: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: response carried no access_token", ErrAuthFailed)
	}

	lifetime := m.ttl
	if tr.ExpiresIn != nil && *tr.ExpiresIn > 0 {
		lifetime = time.Duration(*tr.ExpiresIn) * time.Second
	} else {
		m.logger.Warn().Dur("default_ttl", m.ttl).Msg("token response omitted expires_in, using default lifetime")
	}

	tok := Token{Value: tr.AccessToken, ExpiresAt: m.now().Add(lifetime)}
	if err := m.store.Save(ctx, tok); err != nil {
		return Token{}, fmt.Errorf("persist token: %w", err)
	}

	m.mu.Lock()
	m.tok = tok
	m.mu.Unlock()

	m.logger.Info().Str("username", creds.Username).Time("expires_at", tok.ExpiresAt).Msg("logged in")
	return tok, nil
}

// IsAuthenticated reports whether a token is held and has not expired.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.Token()
	return ok
}

// Token returns the bearer value when a live token is held. It never
// refreshes or clears state.
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	tok := m.tok
	m.mu.RUnlock()
	if tok.Expired(m.now()) {
		return "", false
	}
	return tok.Value, true
}

// ExpiresAt returns the expiry of the held token.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tok.Value == "" {
		return time.Time{}, false
	}
	return m.tok.ExpiresAt, true
}

// Logout clears the token unconditionally.
func (m *Manager) Logout(ctx context.Context) error {
	m.clear()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.logger.Info().Msg("logged out")
	return nil
}

// Invalidate drops the token after the server rejected it.
func (m *Manager) Invalidate(ctx context.Context) {
	m.clear()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear persisted token")
	}
	m.logger.Warn().Msg("token rejected by server, session invalidated")
}

// CheckRefresh clears the token when less than the refresh threshold of
// its lifetime remains. No refresh endpoint exists, so the user must log in
// again. It reports whether the token was cleared.
func (m *Manager) CheckRefresh(ctx context.Context) bool {
	m.mu.RLock()
	tok := m.tok
	m.mu.RUnlock()
	if tok.Value == "" {
		return false
	}
	remaining := tok.ExpiresAt.Sub(m.now())
	if remaining >= m.threshold {
		return false
	}

	m.clear()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear persisted token")
	}
	m.logger.Warn().Dur("remaining", remaining).Dur("threshold", m.threshold).Msg("token near expiry, session cleared")
	return true
}

// Watch runs CheckRefresh every interval until ctx is done.
func (m *Manager) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckRefresh(ctx)
		}
	}
}

// Teardown ends the manager's lifecycle, clearing memory and persisted
// state.
func (m *Manager) Teardown(ctx context.Context) error {
	m.clear()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("teardown auth: %w", err)
	}
	return nil
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.tok = Token{}
	m.mu.Unlock()
}
