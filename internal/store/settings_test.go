// ABOUTME: Integration tests for store/settings.go — Rows Per Page resolution
// ABOUTME: and per-user shadowing of system defaults.
package store_test

import (
	"context"
	"testing"

	"github.com/varden/scanmgr/internal/store"
	"github.com/varden/scanmgr/internal/testutil"
)

func TestRowsPerPage_SystemDefaultAndOverride(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Migration seeds the system default of 10.
	if got := s.RowsPerPage(ctx, alice.ID, 99); got != 10 {
		t.Errorf("RowsPerPage = %d, want system default 10", got)
	}

	if err := s.ModifySetting(ctx, alice.ID, store.RowsPerPageUUID, "25"); err != nil {
		t.Fatalf("ModifySetting: %v", err)
	}
	if got := s.RowsPerPage(ctx, alice.ID, 99); got != 25 {
		t.Errorf("RowsPerPage after override = %d, want 25", got)
	}

	// Another user still sees the system default.
	bob, err := s.CreateUser(ctx, "bob", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser bob: %v", err)
	}
	if got := s.RowsPerPage(ctx, bob.ID, 99); got != 10 {
		t.Errorf("bob RowsPerPage = %d, want 10", got)
	}
}

func TestRowsPerPage_FallbackOnGarbage(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.ModifySetting(ctx, alice.ID, store.RowsPerPageUUID, "not-a-number"); err != nil {
		t.Fatalf("ModifySetting: %v", err)
	}
	if got := s.RowsPerPage(ctx, alice.ID, 15); got != 15 {
		t.Errorf("RowsPerPage = %d, want fallback 15", got)
	}
}

func TestModifySetting_UnknownUUID(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)

	err := s.ModifySetting(context.Background(), 1, "00000000-0000-0000-0000-000000000000", "5")
	if err == nil {
		t.Error("expected error for unknown setting uuid, got nil")
	}
}

func TestListSettings_ShadowsDefaults(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.ModifySetting(ctx, alice.ID, store.RowsPerPageUUID, "50"); err != nil {
		t.Fatalf("ModifySetting: %v", err)
	}

	settings, err := s.ListSettings(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	seen := 0
	for _, st := range settings {
		if st.UUID == store.RowsPerPageUUID {
			seen++
			if st.Value != "50" {
				t.Errorf("Rows Per Page value = %q, want 50", st.Value)
			}
		}
	}
	if seen != 1 {
		t.Errorf("Rows Per Page appears %d times, want exactly 1", seen)
	}
}
