package tokenstore

import (
	"path/filepath"
	"testing"

	portal "github.com/carelink/portal-go"
)

func openTemp(t *testing.T) (*File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portal.db")
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f, path
}

func TestOpenFile_EmptyPath(t *testing.T) {
	if _, err := OpenFile(""); err == nil {
		t.Fatal("OpenFile(\"\") should fail")
	}
}

func TestFile_SetGetClear(t *testing.T) {
	f, _ := openTemp(t)

	if err := f.Set(portal.KeyAccessToken, "A"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	v, ok := f.Get(portal.KeyAccessToken)
	if !ok || v != "A" {
		t.Errorf("Get = (%q, %v), want (\"A\", true)", v, ok)
	}

	// Overwrite is read-your-writes within the process.
	if err := f.Set(portal.KeyAccessToken, "B"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if v, _ := f.Get(portal.KeyAccessToken); v != "B" {
		t.Errorf("Get after overwrite = %q, want B", v)
	}

	if err := f.Clear(portal.KeyAccessToken); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if _, ok := f.Get(portal.KeyAccessToken); ok {
		t.Error("value still present after Clear")
	}
}

func TestFile_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}
	if err := portal.SetCredentials(f, portal.CredentialPair{Access: "A", Refresh: "R"}); err != nil {
		t.Fatalf("SetCredentials returned error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()

	if v, _ := reopened.Get(portal.KeyAccessToken); v != "A" {
		t.Errorf("access after reopen = %q, want A", v)
	}
	if v, _ := reopened.Get(portal.KeyRefreshToken); v != "R" {
		t.Errorf("refresh after reopen = %q, want R", v)
	}
}

func TestFile_ClearAbsentIsNoop(t *testing.T) {
	f, _ := openTemp(t)
	if err := f.Clear("missing"); err != nil {
		t.Fatalf("Clear of absent entry returned error: %v", err)
	}
}
