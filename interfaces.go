package portal

import "context"

// Token store keys. The access and refresh tokens are the only entries
// this SDK persists.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// TokenStore is durable key-value storage for credential strings.
// Implementations: tokenstore/ (in-memory and sqlite-file backed).
// Writes are synchronous: a Set is visible to the next Get.
type TokenStore interface {
	// Get returns the stored value, and false if the entry is absent.
	Get(name string) (string, bool)

	// Set stores the value under the given name.
	Set(name, value string) error

	// Clear removes the entry. Clearing an absent entry is a no-op.
	Clear(name string) error
}

// SessionReader is read-only access to the session. Everything outside
// the session manager — guards, the request authenticator, UI code —
// observes the session exclusively through this interface.
type SessionReader interface {
	// Snapshot returns the current state synchronously. It never blocks;
	// navigation decisions depend on that.
	Snapshot() SessionState

	// Subscribe returns a channel carrying state snapshots, emitted on
	// change, and a cancel function releasing the subscription.
	Subscribe() (<-chan SessionState, func())
}

// SessionManager owns every session mutation: login, logout, register,
// profile fetch, startup restore. Implementations: session/.
type SessionManager interface {
	// Register forwards the request to the backend. No session state is
	// touched on success; the user still has to log in.
	Register(ctx context.Context, req RegisterRequest) error

	// Login exchanges credentials for a token pair, persists it, and
	// seeds the session from the decoded access token. The profile fetch
	// is triggered asynchronously and does not block the call.
	Login(ctx context.Context, req LoginRequest) (CredentialPair, error)

	// Logout clears persisted tokens and resets the session. Idempotent.
	Logout()

	// FetchProfile resolves username, email and role. A no-op when not
	// authenticated; a 401 forces logout.
	FetchProfile(ctx context.Context) error

	// Startup restores the session from a persisted access token, if any.
	Startup(ctx context.Context) error
}

// RoutePolicy decides whether a navigation may proceed.
// Implementations: guard/.
type RoutePolicy interface {
	Evaluate(route Route, requested string) Decision
}

// Navigator is invoked when a session flow forces a view change, e.g.
// logout sending the user back to the login view. The SDK never blocks
// on it.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// SetCredentials writes both token entries. If the second write fails the
// first is rolled back so observers never see a partial pair.
func SetCredentials(s TokenStore, pair CredentialPair) error {
	if err := s.Set(KeyAccessToken, pair.Access); err != nil {
		return err
	}
	if err := s.Set(KeyRefreshToken, pair.Refresh); err != nil {
		_ = s.Clear(KeyAccessToken)
		return err
	}
	return nil
}

// ClearCredentials removes both token entries.
func ClearCredentials(s TokenStore) error {
	accessErr := s.Clear(KeyAccessToken)
	refreshErr := s.Clear(KeyRefreshToken)
	if accessErr != nil {
		return accessErr
	}
	return refreshErr
}

// HasCredentials reports whether an access token is currently persisted.
func HasCredentials(s TokenStore) bool {
	v, ok := s.Get(KeyAccessToken)
	return ok && v != ""
}
