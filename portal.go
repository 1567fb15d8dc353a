// Package portal provides a framework-agnostic Go SDK for the telemedicine
// patient/doctor portal backend.
//
// The SDK covers the client-side session core: durable token storage,
// observable session state, login/logout/register/profile flows, role-based
// route guards, and outbound request authentication. Concrete
// implementations are injected via Option functions, so the SDK does not
// depend on any particular UI or storage technology.
//
// Example usage with the bundled implementations:
//
//	store, err := tokenstore.OpenFile("portal.db")
//	sess := session.NewSession()
//	client, err := portal.NewClient(
//	    portal.Config{BaseURL: "https://api.portal.example.com"},
//	    portal.WithTokenStore(store),
//	    portal.WithSession(sess),
//	)
package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client is the main entry point for portal operations.
// Service implementations are injected via Option functions.
type Client struct {
	config  Config
	logger  *slog.Logger
	store   TokenStore
	session SessionReader
	manager SessionManager
	policy  RoutePolicy
	http    *http.Client
}

// Config holds connection and behavior configuration.
type Config struct {
	// BaseURL is the backend origin (e.g. "https://api.portal.example.com").
	// The request authenticator attaches bearer credentials only to
	// requests whose URL is prefixed by it.
	BaseURL string

	// StoragePath is the file path for durable token storage. Empty means
	// the caller wires its own TokenStore.
	StoragePath string

	// RequestTimeout bounds every backend call. Default: 10 seconds.
	RequestTimeout time.Duration
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTokenStore sets the credential storage implementation.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.store = s }
}

// WithSession sets the observable session state.
func WithSession(s SessionReader) Option {
	return func(c *Client) { c.session = s }
}

// WithSessionManager sets the session flow implementation.
func WithSessionManager(m SessionManager) Option {
	return func(c *Client) { c.manager = m }
}

// WithRoutePolicy sets the navigation guard implementation.
func WithRoutePolicy(p RoutePolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithHTTPClient sets the HTTP client used for backend calls, typically
// one whose transport attaches the bearer credential.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// DefaultRequestTimeout bounds backend calls when none is configured.
const DefaultRequestTimeout = 10 * time.Second

// NewClient creates a new portal client with the given configuration and
// options.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("portal: BaseURL is required")
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	c := &Client{config: cfg}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Logger returns the configured logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Store returns the token store, or nil if not configured.
func (c *Client) Store() TokenStore { return c.store }

// Session returns the observable session, or nil if not configured.
func (c *Client) Session() SessionReader { return c.session }

// Manager returns the session manager, or nil if not configured.
func (c *Client) Manager() SessionManager { return c.manager }

// Policy returns the route access policy, or nil if not configured.
func (c *Client) Policy() RoutePolicy { return c.policy }

// HTTPClient returns the authenticated HTTP client, or nil if not
// configured.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Startup restores the session from persisted credentials. It is a no-op
// when no session manager is configured.
func (c *Client) Startup(ctx context.Context) error {
	if c.manager == nil {
		return nil
	}
	return c.manager.Startup(ctx)
}

// Close releases all resources held by the client.
// Any injected service that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []interface{}{c.manager, c.policy, c.session, c.store}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
