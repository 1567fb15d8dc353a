package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	portal "github.com/carelink/portal-go"
	"github.com/carelink/portal-go/tokenstore"
)

type stubSession struct {
	state portal.SessionState
}

func (s *stubSession) Snapshot() portal.SessionState { return s.state }

func (s *stubSession) Subscribe() (<-chan portal.SessionState, func()) {
	return make(chan portal.SessionState), func() {}
}

// captureTransport records the request it was handed instead of dialing.
type captureTransport struct {
	req *http.Request
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.req = req
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusOK)
	return rec.Result(), nil
}

func newAuthenticator(t *testing.T, origin string, authenticated, withToken bool, opts ...Option) (*Authenticator, *captureTransport) {
	t.Helper()
	store := tokenstore.NewMemory()
	if withToken {
		if err := store.Set(portal.KeyAccessToken, "tok-123"); err != nil {
			t.Fatal(err)
		}
	}
	sess := &stubSession{}
	if authenticated {
		sess.state = portal.SessionState{Authenticated: true, Identity: &portal.Identity{ID: 1}}
	}

	capture := &captureTransport{}
	a, err := New(origin, sess, store, append(opts, WithBase(capture))...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return a, capture
}

func roundTrip(t *testing.T, a *Authenticator, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := a.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}
	resp.Body.Close()
	return req
}

func TestRoundTrip_AttachesBearerToOriginRequests(t *testing.T) {
	a, capture := newAuthenticator(t, "https://api.example.com", true, true)

	roundTrip(t, a, "https://api.example.com/profile/")

	if got := capture.req.Header.Get("Authorization"); got != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer tok-123")
	}
}

func TestRoundTrip_SkipsForeignOrigins(t *testing.T) {
	a, capture := newAuthenticator(t, "https://api.example.com", true, true)

	roundTrip(t, a, "https://evil.example.net/profile/")

	if got := capture.req.Header.Get("Authorization"); got != "" {
		t.Errorf("credential leaked to a foreign origin: %q", got)
	}
}

func TestRoundTrip_SkipsWhenNotAuthenticated(t *testing.T) {
	a, capture := newAuthenticator(t, "https://api.example.com", false, true)

	roundTrip(t, a, "https://api.example.com/profile/")

	if got := capture.req.Header.Get("Authorization"); got != "" {
		t.Errorf("credential attached for a logged-out session: %q", got)
	}
}

func TestRoundTrip_SkipsWhenTokenAbsent(t *testing.T) {
	a, capture := newAuthenticator(t, "https://api.example.com", true, false)

	roundTrip(t, a, "https://api.example.com/profile/")

	if got := capture.req.Header.Get("Authorization"); got != "" {
		t.Errorf("credential attached with an empty store: %q", got)
	}
}

func TestRoundTrip_DoesNotMutateOriginalRequest(t *testing.T) {
	a, capture := newAuthenticator(t, "https://api.example.com", true, true)

	req := roundTrip(t, a, "https://api.example.com/profile/")

	if got := req.Header.Get("Authorization"); got != "" {
		t.Errorf("original request was mutated: Authorization = %q", got)
	}
	if capture.req == req {
		t.Error("the transport was handed the original request, not a clone")
	}
}

func TestRoundTrip_TrailingSlashOriginNormalized(t *testing.T) {
	a, capture := newAuthenticator(t, "https://api.example.com/", true, true)

	roundTrip(t, a, "https://api.example.com/profile/")

	if got := capture.req.Header.Get("Authorization"); got == "" {
		t.Error("trailing slash on the origin broke the prefix match")
	}
}

func TestRoundTrip_ObserverReportsAttachment(t *testing.T) {
	var seen []bool
	a, _ := newAuthenticator(t, "https://api.example.com", true, true,
		WithObserver(func(attached bool) { seen = append(seen, attached) }))

	roundTrip(t, a, "https://api.example.com/profile/")
	roundTrip(t, a, "https://elsewhere.example.org/")

	if len(seen) != 2 || !seen[0] || seen[1] {
		t.Errorf("observer saw %v, want [true false]", seen)
	}
}

func TestNew_RequiresOrigin(t *testing.T) {
	if _, err := New("", &stubSession{}, tokenstore.NewMemory()); err == nil {
		t.Fatal("New accepted an empty origin")
	}
}
