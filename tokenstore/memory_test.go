package tokenstore

import (
	"errors"
	"testing"

	portal "github.com/carelink/portal-go"
)

func TestMemory_SetGetClear(t *testing.T) {
	m := NewMemory()

	if _, ok := m.Get(portal.KeyAccessToken); ok {
		t.Fatal("empty store should not hold an access token")
	}

	if err := m.Set(portal.KeyAccessToken, "A"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	v, ok := m.Get(portal.KeyAccessToken)
	if !ok || v != "A" {
		t.Errorf("Get = (%q, %v), want (\"A\", true)", v, ok)
	}

	if err := m.Clear(portal.KeyAccessToken); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if _, ok := m.Get(portal.KeyAccessToken); ok {
		t.Error("value still present after Clear")
	}
}

func TestMemory_ClearAbsentIsNoop(t *testing.T) {
	m := NewMemory()
	if err := m.Clear("missing"); err != nil {
		t.Fatalf("Clear of absent entry returned error: %v", err)
	}
}

func TestSetCredentials_BothEntries(t *testing.T) {
	m := NewMemory()
	pair := portal.CredentialPair{Access: "A", Refresh: "R"}

	if err := portal.SetCredentials(m, pair); err != nil {
		t.Fatalf("SetCredentials returned error: %v", err)
	}

	if v, _ := m.Get(portal.KeyAccessToken); v != "A" {
		t.Errorf("access = %q, want A", v)
	}
	if v, _ := m.Get(portal.KeyRefreshToken); v != "R" {
		t.Errorf("refresh = %q, want R", v)
	}
	if !portal.HasCredentials(m) {
		t.Error("HasCredentials = false after SetCredentials")
	}
}

func TestClearCredentials_BothEntries(t *testing.T) {
	m := NewMemory()
	_ = portal.SetCredentials(m, portal.CredentialPair{Access: "A", Refresh: "R"})

	if err := portal.ClearCredentials(m); err != nil {
		t.Fatalf("ClearCredentials returned error: %v", err)
	}
	if _, ok := m.Get(portal.KeyAccessToken); ok {
		t.Error("access token survived ClearCredentials")
	}
	if _, ok := m.Get(portal.KeyRefreshToken); ok {
		t.Error("refresh token survived ClearCredentials")
	}
	if portal.HasCredentials(m) {
		t.Error("HasCredentials = true after ClearCredentials")
	}
}

// failingStore rejects writes to a chosen key.
type failingStore struct {
	*Memory
	failKey string
}

func (f *failingStore) Set(name, value string) error {
	if name == f.failKey {
		return errors.New("write rejected")
	}
	return f.Memory.Set(name, value)
}

func TestSetCredentials_RollsBackOnPartialWrite(t *testing.T) {
	f := &failingStore{Memory: NewMemory(), failKey: portal.KeyRefreshToken}

	err := portal.SetCredentials(f, portal.CredentialPair{Access: "A", Refresh: "R"})
	if err == nil {
		t.Fatal("SetCredentials should fail when the refresh write fails")
	}
	if _, ok := f.Get(portal.KeyAccessToken); ok {
		t.Error("access token left behind after failed pair write")
	}
}
