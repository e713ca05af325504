// Package gate wraps the OAuth login handshake and the allow-list
// authorization check. It is a state machine over
// {Unauthenticated, Authenticating, Authorized, Denied}; every transition is
// user-initiated and nothing here is ever persisted.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/mkarlsen/keepsake/internal/apperr"
	"github.com/mkarlsen/keepsake/internal/mirror"
	"github.com/mkarlsen/keepsake/internal/models"
)

// State is the gate's position in the login state machine.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthorized      State = "authorized"
	StateDenied          State = "denied"
)

// Session is a snapshot of the transient, in-memory session.
type Session struct {
	State State  `json:"state"`
	Email string `json:"email,omitempty"`
}

// Authenticator performs the OAuth handshake against the identity provider.
type Authenticator interface {
	// AuthCodeURL returns the provider URL the user visits to approve access.
	AuthCodeURL(state string) string
	// Exchange trades the callback code for the account email and a token
	// source for subsequent API calls.
	Exchange(ctx context.Context, code string) (email string, ts oauth2.TokenSource, err error)
}

// AuthenticatorFactory builds an Authenticator for the current settings.
type AuthenticatorFactory func(models.RemoteSettings) Authenticator

// ClientFactory builds a mirror client from a token source.
type ClientFactory func(ctx context.Context, ts oauth2.TokenSource, s models.RemoteSettings) (mirror.Client, error)

// Gate owns the session singleton. The settings/session pair is read-mostly
// and only ever replaced wholesale via Reset.
type Gate struct {
	newAuth   AuthenticatorFactory
	newClient ClientFactory
	logger    *slog.Logger

	mu       sync.Mutex
	settings models.RemoteSettings
	state    State
	email    string
	ts       oauth2.TokenSource
	auth     Authenticator
	nonce    string
}

// Option is a functional option for configuring the gate.
type Option func(*Gate)

// WithAuthenticatorFactory overrides the OAuth handshake implementation.
func WithAuthenticatorFactory(f AuthenticatorFactory) Option {
	return func(g *Gate) { g.newAuth = f }
}

// WithClientFactory overrides how mirror clients are built from a token.
func WithClientFactory(f ClientFactory) Option {
	return func(g *Gate) { g.newClient = f }
}

// New creates a gate for the given settings. redirectURL is where the OAuth
// provider sends the callback.
func New(settings models.RemoteSettings, redirectURL string, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		newAuth: func(s models.RemoteSettings) Authenticator {
			return newGoogleAuthenticator(s, redirectURL)
		},
		newClient: func(ctx context.Context, ts oauth2.TokenSource, s models.RemoteSettings) (mirror.Client, error) {
			return mirror.NewGoogleClient(ctx, ts, s)
		},
		logger:   logger,
		settings: settings,
		state:    StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BeginLogin starts the handshake. It fails with ErrConfigMissing, without
// transitioning, unless the remote settings are fully populated. Returns the
// provider URL to send the user to.
func (g *Gate) BeginLogin() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.settings.Complete() {
		return "", apperr.ErrConfigMissing
	}

	g.auth = g.newAuth(g.settings)
	g.nonce = uuid.NewString()
	g.state = StateAuthenticating
	g.email = ""
	g.ts = nil
	return g.auth.AuthCodeURL(g.nonce), nil
}

// CompleteLogin finishes the handshake with the provider callback values.
// Handshake failure returns ErrLogin and the gate falls back to
// Unauthenticated. A successful handshake is Authorized only when the
// account email is on the allow-list; otherwise the token is discarded and
// the gate is Denied. An unreadable allow-list surfaces ErrAccessCheck.
//
// The network phase runs outside the lock, so a Reset or SignOut can land
// mid-handshake. Every commit below re-checks that this attempt is still the
// current one; a superseded attempt never overwrites the newer session.
func (g *Gate) CompleteLogin(ctx context.Context, state, code string) (Session, error) {
	g.mu.Lock()
	if g.state != StateAuthenticating || g.auth == nil {
		g.mu.Unlock()
		return Session{State: g.state}, fmt.Errorf("%w: no login in progress", apperr.ErrLogin)
	}
	if state != g.nonce {
		g.resetLocked(StateUnauthenticated)
		g.mu.Unlock()
		return Session{State: StateUnauthenticated}, fmt.Errorf("%w: state mismatch", apperr.ErrLogin)
	}
	auth := g.auth
	settings := g.settings
	g.mu.Unlock()

	// The exchange and allow-list read happen outside the lock; both are
	// network calls.
	email, ts, err := auth.Exchange(ctx, code)
	if err != nil {
		return g.abandonAttempt(state), fmt.Errorf("%w: %v", apperr.ErrLogin, err)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	client, err := g.newClient(ctx, ts, settings)
	if err != nil {
		return g.abandonAttempt(state), err
	}
	allowed, err := client.ListAuthorizedEmails(ctx)
	if err != nil {
		return g.abandonAttempt(state), err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.attemptCurrentLocked(state) {
		return Session{State: g.state, Email: g.email}, fmt.Errorf("%w: login superseded", apperr.ErrLogin)
	}
	if _, ok := allowed[email]; !ok {
		// Fail closed: an empty allow-list authorizes nobody.
		g.resetLocked(StateDenied)
		g.logger.Warn("sign-in denied", slog.String("email", email))
		return Session{State: StateDenied}, nil
	}

	g.state = StateAuthorized
	g.email = email
	g.ts = ts
	g.nonce = ""
	g.logger.Info("sign-in authorized", slog.String("email", email))
	return Session{State: StateAuthorized, Email: email}, nil
}

// attemptCurrentLocked reports whether the login attempt identified by nonce
// is still the one in progress. Callers hold g.mu.
func (g *Gate) attemptCurrentLocked(nonce string) bool {
	return g.state == StateAuthenticating && g.nonce == nonce
}

// abandonAttempt drops the attempt's session state unless something newer
// replaced it in the meantime. Returns the resulting session snapshot.
func (g *Gate) abandonAttempt(nonce string) Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.attemptCurrentLocked(nonce) {
		g.resetLocked(StateUnauthenticated)
	}
	return Session{State: g.state, Email: g.email}
}

// SignOut discards the session and token. Locally stored records are not
// affected, and an in-flight sync keeps the token source it already captured.
func (g *Gate) SignOut() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked(StateUnauthenticated)
}

// Session returns a snapshot of the current session.
func (g *Gate) Session() Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Session{State: g.state, Email: g.email}
}

// Reset replaces the settings wholesale and discards all session state. Any
// settings change must come through here.
func (g *Gate) Reset(settings models.RemoteSettings) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings = settings
	g.resetLocked(StateUnauthenticated)
}

// Settings returns the current remote settings.
func (g *Gate) Settings() models.RemoteSettings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settings
}

// Mirror builds a mirror client bound to the authorized session's token.
// Returns false when the session is not authorized.
func (g *Gate) Mirror(ctx context.Context) (mirror.Client, bool) {
	g.mu.Lock()
	state, ts, settings := g.state, g.ts, g.settings
	g.mu.Unlock()

	if state != StateAuthorized || ts == nil {
		return nil, false
	}
	client, err := g.newClient(ctx, ts, settings)
	if err != nil {
		g.logger.Error("mirror client build failed", slog.String("error", err.Error()))
		return nil, false
	}
	return client, true
}

// resetLocked drops session state. Callers hold g.mu.
func (g *Gate) resetLocked(to State) {
	g.state = to
	g.email = ""
	g.ts = nil
	g.auth = nil
	g.nonce = ""
}
