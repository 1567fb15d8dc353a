package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	portal "github.com/carelink/portal-go"
	"github.com/carelink/portal-go/audit"
	"github.com/carelink/portal-go/metrics"
	"github.com/carelink/portal-go/rest"
	"github.com/carelink/portal-go/token"
)

// Backend defines the slice of the REST API the session flows consume.
// Implemented by rest.Client.
type Backend interface {
	// Register creates an account. No tokens are issued.
	Register(ctx context.Context, req portal.RegisterRequest) error

	// Login exchanges credentials for a token pair.
	Login(ctx context.Context, req portal.LoginRequest) (portal.CredentialPair, error)

	// GetProfile fetches the current user's profile.
	GetProfile(ctx context.Context) (*portal.Profile, error)
}

// LogoutCause classifies why a session ended.
type LogoutCause string

const (
	CauseUser               LogoutCause = "user"
	CauseExpiredToken       LogoutCause = "expired_token"
	CauseInvalidToken       LogoutCause = "invalid_token"
	CauseUnauthorized       LogoutCause = "unauthorized"
	CausePartialCredentials LogoutCause = "partial_credentials"
	CauseStorageFailure     LogoutCause = "storage_failure"
)

// ErrPartialCredentials is returned when the login response is missing
// the access or refresh token. The login is treated as failed and no
// partial credential state survives.
var ErrPartialCredentials = errors.New("portal/session: login response missing access or refresh token")

// Manager owns the session flows. It is the only component that mutates
// the Session or writes the token store.
type Manager struct {
	session *Session
	store   portal.TokenStore
	backend Backend
	nav     portal.Navigator
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Logger
	now     func() time.Time

	// epoch increments on every login, restore and logout. Profile
	// results from an earlier epoch are dropped instead of being applied
	// to a session they no longer belong to.
	epoch atomic.Uint64
	sf    singleflight.Group
}

// compile-time check
var _ portal.SessionManager = (*Manager)(nil)

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithNavigator sets the navigation hook invoked on forced view changes.
func WithNavigator(n portal.Navigator) ManagerOption {
	return func(m *Manager) { m.nav = n }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mt }
}

// WithAudit sets the audit event logger.
func WithAudit(a *audit.Logger) ManagerOption {
	return func(m *Manager) { m.audit = a }
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager over the given session, store and
// backend.
func NewManager(sess *Session, store portal.TokenStore, backend Backend, opts ...ManagerOption) *Manager {
	m := &Manager{
		session: sess,
		store:   store,
		backend: backend,
		nav:     portal.NavigatorFunc(func(string) {}),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Session returns the observable session this manager mutates.
func (m *Manager) Session() *Session { return m.session }

// Register forwards the request to the backend. Session state is not
// touched on success; the user still has to log in.
func (m *Manager) Register(ctx context.Context, req portal.RegisterRequest) error {
	if err := m.backend.Register(ctx, req); err != nil {
		m.audit.Log(audit.Event{Action: audit.ActionRegister, Result: "failure", Error: err.Error()})
		return fmt.Errorf("portal/session: register: %w", err)
	}
	m.audit.Log(audit.Event{Action: audit.ActionRegister, Result: "success", Details: req.Username})
	return nil
}

// Login exchanges credentials for a token pair, persists both tokens,
// and seeds the session identity from the decoded access token. The
// profile fetch is kicked off asynchronously; the login call does not
// wait for it.
func (m *Manager) Login(ctx context.Context, req portal.LoginRequest) (portal.CredentialPair, error) {
	start := m.now()

	pair, err := m.backend.Login(ctx, req)
	if err != nil {
		m.metrics.RecordLogin("failure", m.now().Sub(start))
		m.audit.Log(audit.Event{Action: audit.ActionLogin, Result: "failure", Details: req.Username, Error: err.Error()})
		return portal.CredentialPair{}, fmt.Errorf("portal/session: login: %w", err)
	}

	if pair.Access == "" || pair.Refresh == "" {
		m.logout(CausePartialCredentials)
		m.metrics.RecordLogin("failure", m.now().Sub(start))
		m.audit.Log(audit.Event{Action: audit.ActionLogin, Result: "failure", Details: req.Username, Error: ErrPartialCredentials.Error()})
		return portal.CredentialPair{}, ErrPartialCredentials
	}

	if err := portal.SetCredentials(m.store, pair); err != nil {
		m.logout(CauseStorageFailure)
		m.metrics.RecordLogin("failure", m.now().Sub(start))
		return portal.CredentialPair{}, fmt.Errorf("portal/session: persist credentials: %w", err)
	}

	payload, err := token.Decode(pair.Access, m.now())
	if err != nil {
		// A token we cannot trust must never seed an identity or ride on
		// outgoing requests.
		m.logout(decodeCause(err))
		m.metrics.RecordLogin("failure", m.now().Sub(start))
		m.audit.Log(audit.Event{Action: audit.ActionLogin, Result: "failure", Details: req.Username, Error: err.Error()})
		return portal.CredentialPair{}, fmt.Errorf("portal/session: decode access token: %w", err)
	}

	m.epoch.Add(1)
	m.session.set(portal.SessionState{
		Authenticated: true,
		Identity:      &portal.Identity{ID: payload.UserID},
	})

	m.metrics.RecordLogin("success", m.now().Sub(start))
	m.audit.Log(audit.Event{Action: audit.ActionLogin, Result: "success", UserID: payload.UserID, Details: req.Username})

	go func() {
		if err := m.FetchProfile(context.WithoutCancel(ctx)); err != nil {
			m.logger.Debug("deferred profile fetch failed", "error", err)
		}
	}()

	return pair, nil
}

// Logout clears both persisted tokens and resets the session in one
// observable step, then navigates to the login view. Idempotent.
func (m *Manager) Logout() {
	m.logout(CauseUser)
}

func (m *Manager) logout(cause LogoutCause) {
	m.epoch.Add(1)

	prev := m.session.Snapshot()
	hadTokens := portal.HasCredentials(m.store)

	if err := portal.ClearCredentials(m.store); err != nil {
		m.logger.Error("clearing credentials failed", "error", err)
	}
	m.session.set(portal.SessionState{})

	if !prev.Authenticated && !hadTokens {
		// Already logged out; nothing to re-announce.
		return
	}

	var userID int64
	if prev.Identity != nil {
		userID = prev.Identity.ID
	}
	m.metrics.RecordLogout(string(cause))
	m.audit.Log(audit.Event{Action: audit.ActionLogout, Result: "success", Cause: string(cause), UserID: userID})
	m.nav.Navigate(portal.LoginPath)
}

// FetchProfile resolves username, email and role for the current session.
// It is a no-op when not authenticated. A 401 means the session is stale
// and forces logout; any other failure leaves the session unchanged, so
// the role stays unresolved until a later fetch succeeds.
func (m *Manager) FetchProfile(ctx context.Context) error {
	if !m.session.Snapshot().Authenticated {
		return nil
	}

	_, err, _ := m.sf.Do("profile", func() (any, error) {
		started := m.epoch.Load()

		profile, err := m.backend.GetProfile(ctx)
		if err != nil {
			if rest.IsUnauthorized(err) {
				m.metrics.RecordProfileFetch("unauthorized")
				m.audit.Log(audit.Event{Action: audit.ActionProfileFetch, Result: "failure", Cause: string(CauseUnauthorized), Error: err.Error()})
				m.logout(CauseUnauthorized)
				return nil, fmt.Errorf("portal/session: profile fetch unauthorized: %w", err)
			}
			m.metrics.RecordProfileFetch("failure")
			m.logger.Warn("profile fetch failed, session unchanged", "error", err)
			return nil, fmt.Errorf("portal/session: profile fetch: %w", err)
		}

		m.applyProfile(profile, started)
		m.metrics.RecordProfileFetch("success")
		return nil, nil
	})
	return err
}

// Startup restores the session from a persisted access token. A missing
// token means a clean logged-out start; a corrupt or expired token forces
// logout so it can never be attached to outgoing requests.
func (m *Manager) Startup(ctx context.Context) error {
	raw, ok := m.store.Get(portal.KeyAccessToken)
	if !ok || raw == "" {
		return nil
	}

	payload, err := token.Decode(raw, m.now())
	if err != nil {
		m.audit.Log(audit.Event{Action: audit.ActionStartup, Result: "failure", Error: err.Error()})
		m.logout(decodeCause(err))
		return fmt.Errorf("portal/session: restore session: %w", err)
	}

	m.epoch.Add(1)
	m.session.set(portal.SessionState{
		Authenticated: true,
		Identity:      &portal.Identity{ID: payload.UserID},
	})
	m.audit.Log(audit.Event{Action: audit.ActionStartup, Result: "success", UserID: payload.UserID})

	go func() {
		if err := m.FetchProfile(context.WithoutCancel(ctx)); err != nil {
			m.logger.Debug("startup profile fetch failed", "error", err)
		}
	}()

	return nil
}

// applyProfile merges the fetched profile into the session, preserving
// the identity ID. Results from a superseded epoch are dropped: the late
// response of a request that outlived its session must not resurrect it.
func (m *Manager) applyProfile(p *portal.Profile, started uint64) {
	if m.epoch.Load() != started {
		m.logger.Debug("dropping stale profile result")
		return
	}

	role, ok := portal.ParseRole(p.Role)
	if !ok && p.Role != "" {
		m.logger.Warn("unrecognized role in profile", "role", p.Role)
	}

	m.session.mutate(func(st *portal.SessionState) {
		if !st.Authenticated || st.Identity == nil {
			return
		}
		st.Identity.Username = p.User.Username
		st.Identity.Email = p.User.Email
		st.Role = role
	})
}

func decodeCause(err error) LogoutCause {
	if errors.Is(err, token.ErrExpired) {
		return CauseExpiredToken
	}
	return CauseInvalidToken
}
