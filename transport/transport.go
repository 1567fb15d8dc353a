// Package transport implements the outbound request authenticator: an
// http.RoundTripper that attaches the bearer credential to requests bound
// for the configured backend origin.
//
// The authenticator deliberately does not react to 401 responses and
// never submits the refresh token; a stale session is detected and torn
// down by the session manager's profile fetch instead.
package transport

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	portal "github.com/carelink/portal-go"
)

// Authenticator is a RoundTripper that conditionally adds
// "Authorization: Bearer <access token>" to outgoing requests.
//
// The credential is attached only when the session is authenticated, an
// access token is present in the store, and the request URL is prefixed
// by the backend origin. The original request is never mutated; the
// header goes on a clone.
type Authenticator struct {
	base     http.RoundTripper
	origin   string
	session  portal.SessionReader
	store    portal.TokenStore
	observer func(attached bool)
}

// compile-time check
var _ http.RoundTripper = (*Authenticator)(nil)

// Option configures the Authenticator.
type Option func(*Authenticator)

// WithBase sets the underlying transport. Default: http.DefaultTransport.
func WithBase(rt http.RoundTripper) Option {
	return func(a *Authenticator) { a.base = rt }
}

// WithObserver sets a hook told whether each request carried the
// credential, e.g. for metrics.
func WithObserver(o func(attached bool)) Option {
	return func(a *Authenticator) { a.observer = o }
}

// New creates an authenticator for the given backend origin.
func New(origin string, session portal.SessionReader, store portal.TokenStore, opts ...Option) (*Authenticator, error) {
	if origin == "" {
		return nil, fmt.Errorf("portal/transport: origin is required")
	}

	a := &Authenticator{
		base:    http.DefaultTransport,
		origin:  strings.TrimRight(origin, "/"),
		session: session,
		store:   store,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// RoundTrip implements http.RoundTripper.
func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, ok := a.token(req)
	if !ok {
		a.observe(false)
		return a.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+tok)
	a.observe(true)
	return a.base.RoundTrip(clone)
}

// token returns the access token to attach, if all attachment conditions
// hold for this request.
func (a *Authenticator) token(req *http.Request) (string, bool) {
	if req.URL == nil || !strings.HasPrefix(req.URL.String(), a.origin) {
		return "", false
	}
	if !a.session.Snapshot().Authenticated {
		return "", false
	}
	tok, ok := a.store.Get(portal.KeyAccessToken)
	if !ok || tok == "" {
		return "", false
	}
	return tok, true
}

func (a *Authenticator) observe(attached bool) {
	if a.observer != nil {
		a.observer(attached)
	}
}

// NewHTTPClient wraps the authenticator in an http.Client with the given
// timeout.
func NewHTTPClient(a *Authenticator, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = portal.DefaultRequestTimeout
	}
	return &http.Client{Transport: a, Timeout: timeout}
}
