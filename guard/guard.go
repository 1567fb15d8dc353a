// Package guard implements the route access policy: an authentication
// guard followed by a role guard, evaluated in that order against a
// single session snapshot.
//
// Guards never block and never fail; every denial resolves to a concrete
// redirect target. They act on the latest snapshot only, so an in-flight
// profile fetch cannot stall a navigation — a freshly logged-in user is
// treated as role-unknown until the profile resolves.
package guard

import (
	"log/slog"
	"net/url"
	"strings"

	portal "github.com/carelink/portal-go"
)

// ReturnURLParam is the query parameter carrying the originally requested
// path on a login redirect.
const ReturnURLParam = "returnUrl"

// Guard is a single navigation predicate.
type Guard interface {
	Check(snap portal.SessionState, route portal.Route, requested string) portal.Decision
}

// AuthGuard denies navigation to unauthenticated sessions, preserving the
// requested path so a successful login can resume it.
type AuthGuard struct{}

func (AuthGuard) Check(snap portal.SessionState, _ portal.Route, requested string) portal.Decision {
	if !snap.Authenticated {
		return portal.Decision{
			Redirect: LoginRedirect(requested),
			Reason:   portal.ReasonNotAuthenticated,
		}
	}
	return portal.Decision{Allowed: true, Reason: portal.ReasonAuthenticated}
}

// RoleGuard matches the session role against the route's declared roles.
//
// A route declaring no roles admits any authenticated user; that default
// is a convenience, not a security boundary — the backend still enforces
// authorization. An unresolved role fails closed and redirects to login.
type RoleGuard struct{}

func (RoleGuard) Check(snap portal.SessionState, route portal.Route, _ string) portal.Decision {
	if len(route.Roles) == 0 {
		return portal.Decision{Allowed: true, Reason: portal.ReasonNoRolesDeclared}
	}

	if !snap.Role.Known() {
		return portal.Decision{
			Redirect: portal.LoginPath,
			Reason:   portal.ReasonRoleUnknown,
		}
	}

	for _, r := range route.Roles {
		if strings.EqualFold(string(r), string(snap.Role)) {
			return portal.Decision{Allowed: true, Reason: portal.ReasonRoleMatch}
		}
	}

	// Never dead-end the user on a blank error page.
	return portal.Decision{
		Redirect: portal.LandingPath(snap.Role),
		Reason:   portal.ReasonRoleMismatch,
	}
}

// Observer receives every decision, e.g. for metrics or audit.
type Observer func(route portal.Route, requested string, d portal.Decision)

// Policy composes the guards in declared order over one snapshot read.
type Policy struct {
	session  portal.SessionReader
	guards   []Guard
	logger   *slog.Logger
	observer Observer
}

// compile-time check
var _ portal.RoutePolicy = (*Policy)(nil)

// Option configures the Policy.
type Option func(*Policy)

// WithLogger sets a structured logger for denied navigations.
func WithLogger(l *slog.Logger) Option {
	return func(p *Policy) { p.logger = l }
}

// WithObserver sets a hook receiving every decision.
func WithObserver(o Observer) Option {
	return func(p *Policy) { p.observer = o }
}

// NewPolicy creates the standard policy: AuthGuard then RoleGuard.
func NewPolicy(session portal.SessionReader, opts ...Option) *Policy {
	p := &Policy{
		session: session,
		guards:  []Guard{AuthGuard{}, RoleGuard{}},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Evaluate runs the guards against a single current-value read of the
// session. The first denial wins.
func (p *Policy) Evaluate(route portal.Route, requested string) portal.Decision {
	snap := p.session.Snapshot()

	d := portal.Decision{Allowed: true, Reason: portal.ReasonAuthenticated}
	for _, g := range p.guards {
		d = g.Check(snap, route, requested)
		if !d.Allowed {
			break
		}
	}

	if !d.Allowed {
		p.logger.Info("navigation denied",
			"path", requested,
			"reason", string(d.Reason),
			"redirect", d.Redirect,
		)
	}
	if p.observer != nil {
		p.observer(route, requested, d)
	}
	return d
}

// LoginRedirect builds the login path with the requested path preserved
// as the return target.
func LoginRedirect(requested string) string {
	if requested == "" {
		return portal.LoginPath
	}
	return portal.LoginPath + "?" + ReturnURLParam + "=" + url.QueryEscape(requested)
}

// ReturnTarget extracts the return target from a login redirect, falling
// back to the given default when none is present.
func ReturnTarget(loginURL, def string) string {
	u, err := url.Parse(loginURL)
	if err != nil {
		return def
	}
	if target := u.Query().Get(ReturnURLParam); target != "" {
		return target
	}
	return def
}
