package session

import (
	"testing"
	"time"

	portal "github.com/carelink/portal-go"
)

func TestSession_InitialSnapshot(t *testing.T) {
	s := NewSession()

	snap := s.Snapshot()
	if snap.Authenticated {
		t.Error("new session should not be authenticated")
	}
	if snap.Identity != nil {
		t.Error("new session should have no identity")
	}
	if snap.Role != portal.RoleUnknown {
		t.Errorf("Role = %q, want RoleUnknown", snap.Role)
	}
}

func TestSession_EmitsOnChange(t *testing.T) {
	s := NewSession()
	ch, cancel := s.Subscribe()
	defer cancel()

	s.set(portal.SessionState{Authenticated: true, Identity: &portal.Identity{ID: 7}})

	select {
	case snap := <-ch:
		if !snap.Authenticated || snap.Identity == nil || snap.Identity.ID != 7 {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no emission after state change")
	}
}

func TestSession_NoEmissionWhenUnchanged(t *testing.T) {
	s := NewSession()
	s.set(portal.SessionState{Authenticated: true, Identity: &portal.Identity{ID: 7}})

	ch, cancel := s.Subscribe()
	defer cancel()

	// Same observable state again: subscribers stay quiet.
	s.set(portal.SessionState{Authenticated: true, Identity: &portal.Identity{ID: 7}})

	select {
	case snap := <-ch:
		t.Fatalf("unexpected emission: %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSession_LatestValueWins(t *testing.T) {
	s := NewSession()
	ch, cancel := s.Subscribe()
	defer cancel()

	// A slow consumer sees the newest snapshot, not the intermediate one.
	s.set(portal.SessionState{Authenticated: true, Identity: &portal.Identity{ID: 1}})
	s.set(portal.SessionState{Authenticated: true, Identity: &portal.Identity{ID: 1}, Role: portal.RolePatient})

	select {
	case snap := <-ch:
		if snap.Role != portal.RolePatient {
			t.Errorf("Role = %q, want PATIENT (latest value)", snap.Role)
		}
	case <-time.After(time.Second):
		t.Fatal("no emission")
	}
}

func TestSession_CancelClosesChannel(t *testing.T) {
	s := NewSession()
	ch, cancel := s.Subscribe()

	cancel()
	// Cancel twice is safe.
	cancel()

	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}

	// Emission after cancel must not panic.
	s.set(portal.SessionState{Authenticated: true, Identity: &portal.Identity{ID: 1}})
}

func TestSession_MutateIsAtomic(t *testing.T) {
	s := NewSession()
	s.set(portal.SessionState{Authenticated: true, Identity: &portal.Identity{ID: 5}})

	before := s.Snapshot()

	s.mutate(func(st *portal.SessionState) {
		st.Identity.Username = "alice"
		st.Identity.Email = "alice@example.com"
		st.Role = portal.RolePatient
	})

	// The earlier snapshot is a value: mutation must not reach through it.
	if before.Identity.Username != "" || before.Role != portal.RoleUnknown {
		t.Error("mutate leaked into a previously taken snapshot")
	}

	after := s.Snapshot()
	if after.Identity.Username != "alice" || after.Role != portal.RolePatient {
		t.Errorf("unexpected state after mutate: %+v", after)
	}
	if after.Identity.ID != 5 {
		t.Errorf("ID = %d, want 5 (preserved)", after.Identity.ID)
	}
}
