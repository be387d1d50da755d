package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/drive/v3"
)

// DefaultRefreshWindow is how long before expiry a token is refreshed. It
// matches the eager-refresh threshold of golang.org/x/oauth2.
const DefaultRefreshWindow = 5 * time.Minute

// DefaultTTL is the lifetime of a persisted session.
const DefaultTTL = 7 * 24 * time.Hour

// Scopes requested at consent: read the whole Drive, modify files the app
// created or opened.
var Scopes = []string{
	drive.DriveReadonlyScope,
	drive.DriveFileScope,
}

// OAuthConfig builds the Google OAuth client configuration.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRefreshWindow overrides DefaultRefreshWindow.
func WithRefreshWindow(d time.Duration) Option {
	return func(m *Manager) { m.window = d }
}

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// Manager wraps a Store with the OAuth lifecycle. Concurrent Active calls on
// one Manager share a single refresh round trip.
type Manager struct {
	store  Store
	oauth  *oauth2.Config
	logger *slog.Logger
	now    func() time.Time
	window time.Duration
	ttl    time.Duration
	group  singleflight.Group
}

// NewManager returns a Manager over store. A nil logger uses slog.Default().
func NewManager(store Store, oauth *oauth2.Config, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		store:  store,
		oauth:  oauth,
		logger: logger,
		now:    time.Now,
		window: DefaultRefreshWindow,
		ttl:    DefaultTTL,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// AuthorizationURL returns the consent URL carrying state. Offline access and
// forced consent make Google issue a refresh token every time. Extra options
// carry a PKCE challenge for the terminal login.
func (m *Manager) AuthorizationURL(state string, opts ...oauth2.AuthCodeOption) string {
	opts = append([]oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}, opts...)

	return m.oauth.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a session and persists it.
// Nothing is persisted when the provider rejects the code.
func (m *Manager) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*Session, error) {
	tok, err := m.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthExchange, err)
	}

	s := FromToken(tok)

	if s.RefreshToken == "" {
		m.logger.Warn("token response carried no refresh token")
	}

	if err := m.store.Put(ctx, s, m.ttl); err != nil {
		return nil, fmt.Errorf("session: persisting: %w", err)
	}

	m.logger.Info("session established", slog.Time("expiry", s.Expiry))

	return s, nil
}

// Active returns a usable session, or (nil, nil) when the caller is logged
// out. A session close to expiry is refreshed first; if that fails the stored
// session is removed and the caller is treated as logged out.
func (m *Manager) Active(ctx context.Context) (*Session, error) {
	s, err := m.store.Get(ctx)
	if errors.Is(err, ErrCorruptSession) {
		m.logger.Warn("discarding corrupt session", slog.String("error", err.Error()))
		m.discard(ctx)

		return nil, nil //nolint:nilnil // logged out
	}

	if err != nil {
		return nil, fmt.Errorf("session: reading store: %w", err)
	}

	if s == nil {
		return nil, nil //nolint:nilnil // logged out
	}

	if !s.expiresWithin(m.now(), m.window) {
		return s, nil
	}

	v, err, _ := m.group.Do(s.RefreshToken, func() (any, error) {
		return m.refresh(ctx, s)
	})
	if err != nil {
		return nil, err
	}

	refreshed, _ := v.(*Session)
	if refreshed == nil {
		return nil, nil //nolint:nilnil // refresh failed, logged out
	}

	cp := *refreshed

	return &cp, nil
}

// refresh performs the single refresh round trip. A provider failure clears
// the session and yields (nil, nil); only store failures are errors.
func (m *Manager) refresh(ctx context.Context, s *Session) (*Session, error) {
	// A caller that read the store before an earlier flight finished may get
	// here with a stale session.
	if current, err := m.store.Get(ctx); err == nil && current != nil && !current.expiresWithin(m.now(), m.window) {
		return current, nil
	}

	if s.RefreshToken == "" {
		m.logger.Info("session expired without refresh token")
		m.discard(ctx)

		return nil, nil //nolint:nilnil // logged out
	}

	m.logger.Debug("refreshing access token", slog.Time("expiry", s.Expiry))

	tok, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: s.RefreshToken}).Token()
	if err != nil {
		m.logger.Warn("token refresh failed, clearing session", slog.String("error", err.Error()))
		m.discard(ctx)

		return nil, nil //nolint:nilnil // logged out
	}

	next := FromToken(tok)
	if next.RefreshToken == "" {
		next.RefreshToken = s.RefreshToken
	}

	if err := m.store.Put(ctx, next, m.ttl); err != nil {
		return nil, fmt.Errorf("session: persisting refreshed token: %w", err)
	}

	m.logger.Info("access token refreshed", slog.Time("expiry", next.Expiry))

	return next, nil
}

// Clear removes the stored session. Clearing an absent session succeeds.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx); err != nil {
		return fmt.Errorf("session: clearing: %w", err)
	}

	return nil
}

func (m *Manager) discard(ctx context.Context) {
	if err := m.store.Delete(ctx); err != nil {
		m.logger.Warn("failed to delete session", slog.String("error", err.Error()))
	}
}
