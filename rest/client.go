// Package rest is the HTTP client for the portal backend.
//
// It consumes the REST endpoints verbatim: auth (register/login), profile,
// appointments, vitals and listings. Authentication of outgoing requests
// is not handled here; the injected http.Client carries the bearer
// transport.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	portal "github.com/carelink/portal-go"
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal/rest: backend returned %d: %s", e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is a 401 backend response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client calls the portal backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, typically one whose transport
// attaches the bearer credential.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Client) { r.httpClient = c }
}

// New creates a backend client for the given origin.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("portal/rest: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("portal/rest: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("portal/rest: do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("portal/rest: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("portal/rest: decode response: %w", err)
		}
	}
	return nil
}

// Register creates an account. The backend response body is discarded;
// registration success carries no tokens.
func (c *Client) Register(ctx context.Context, req portal.RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/register/", req, nil)
}

// Login exchanges credentials for a token pair. The pair is returned as
// received; callers are responsible for rejecting partial pairs.
func (c *Client) Login(ctx context.Context, req portal.LoginRequest) (portal.CredentialPair, error) {
	var pair portal.CredentialPair
	if err := c.do(ctx, http.MethodPost, "/login/", req, &pair); err != nil {
		return portal.CredentialPair{}, err
	}
	return pair, nil
}

// GetProfile fetches the current user's profile.
func (c *Client) GetProfile(ctx context.Context) (*portal.Profile, error) {
	var p portal.Profile
	if err := c.do(ctx, http.MethodGet, "/profile/", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile updates editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, update portal.ProfileUpdate) (*portal.Profile, error) {
	var p portal.Profile
	if err := c.do(ctx, http.MethodPut, "/profile/", update, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListAppointments returns the caller's appointments.
func (c *Client) ListAppointments(ctx context.Context) ([]portal.Appointment, error) {
	var out []portal.Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAppointment books a new appointment.
func (c *Client) CreateAppointment(ctx context.Context, req portal.AppointmentRequest) (*portal.Appointment, error) {
	var a portal.Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments/", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CancelAppointment cancels an appointment by ID.
func (c *Client) CancelAppointment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/cancel/", id), nil, nil)
}

// CompleteAppointment marks an appointment completed by ID.
func (c *Client) CompleteAppointment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/complete/", id), nil, nil)
}

// ListVitals returns the caller's vitals readings.
func (c *Client) ListVitals(ctx context.Context) ([]portal.Vital, error) {
	var out []portal.Vital
	if err := c.do(ctx, http.MethodGet, "/vitals/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateVital records a new vitals reading.
func (c *Client) CreateVital(ctx context.Context, v portal.Vital) (*portal.Vital, error) {
	var out portal.Vital
	if err := c.do(ctx, http.MethodPost, "/vitals/", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDoctors returns the doctor directory.
func (c *Client) ListDoctors(ctx context.Context) ([]portal.Doctor, error) {
	var out []portal.Doctor
	if err := c.do(ctx, http.MethodGet, "/doctors/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPatients returns the caller's patients. Doctor-only on the backend.
func (c *Client) ListPatients(ctx context.Context) ([]portal.Patient, error) {
	var out []portal.Patient
	if err := c.do(ctx, http.MethodGet, "/doctor/patients/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
