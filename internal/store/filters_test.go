// ABOUTME: Integration tests for store/filters.go — named filter CRUD and the
// ABOUTME: trashcan round trip. Uses testutil.NewTestDB.
package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/varden/scanmgr/internal/store"
	"github.com/varden/scanmgr/internal/testutil"
)

func TestCreateFilter_CanonicalizesTerm(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	id, err := s.CreateFilter(ctx, store.CreateFilterParams{
		Name:         "high findings",
		Term:         "severity>6.9 rows=-2 filt_id=abcd sort=name",
		ResourceType: "result",
		Owner:        alice.ID,
		MaxRows:      1000,
		DefaultRows:  func() int64 { return 25 },
	})
	if err != nil {
		t.Fatalf("CreateFilter: %v", err)
	}

	f, err := s.GetFilter(ctx, id)
	if err != nil {
		t.Fatalf("GetFilter: %v", err)
	}
	if f == nil {
		t.Fatal("GetFilter returned nil for created filter")
	}
	if strings.Contains(f.Term, "filt_id") {
		t.Errorf("stored term still contains filt_id: %q", f.Term)
	}
	if !strings.Contains(f.Term, "rows=25") {
		t.Errorf("stored term did not resolve the rows sentinel: %q", f.Term)
	}
	if !strings.Contains(f.Term, "severity>6.9") {
		t.Errorf("stored term lost the severity clause: %q", f.Term)
	}
}

func TestCreateFilter_RejectsUnknownResourceType(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)

	_, err := s.CreateFilter(context.Background(), store.CreateFilterParams{
		Name:         "bad",
		Term:         "x",
		ResourceType: "teapot",
	})
	if err == nil {
		t.Error("expected error for unknown resource type, got nil")
	}
}

func TestFilter_TrashRestoreDelete(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	id, err := s.CreateFilter(ctx, store.CreateFilterParams{Name: "keeper", Term: "rows=10"})
	if err != nil {
		t.Fatalf("CreateFilter: %v", err)
	}

	if err := s.TrashFilter(ctx, id); err != nil {
		t.Fatalf("TrashFilter: %v", err)
	}
	if f, _ := s.GetFilter(ctx, id); f != nil {
		t.Error("trashed filter still visible in live table")
	}

	if err := s.RestoreFilter(ctx, id); err != nil {
		t.Fatalf("RestoreFilter: %v", err)
	}
	f, err := s.GetFilter(ctx, id)
	if err != nil || f == nil {
		t.Fatalf("GetFilter after restore: %v, %v", f, err)
	}
	if f.Name != "keeper" {
		t.Errorf("restored name = %q, want keeper", f.Name)
	}

	if err := s.TrashFilter(ctx, id); err != nil {
		t.Fatalf("TrashFilter again: %v", err)
	}
	if err := s.DeleteFilter(ctx, id); err != nil {
		t.Fatalf("DeleteFilter: %v", err)
	}
	if err := s.DeleteFilter(ctx, id); err == nil {
		t.Error("deleting a deleted filter should fail")
	}
}

func TestModifyFilter_RecanonicalizesTerm(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	id, err := s.CreateFilter(ctx, store.CreateFilterParams{Name: "original", Term: "rows=10"})
	if err != nil {
		t.Fatalf("CreateFilter: %v", err)
	}

	err = s.ModifyFilter(ctx, id, store.CreateFilterParams{
		Name:        "renamed",
		Term:        "rows=-2",
		MaxRows:     1000,
		DefaultRows: func() int64 { return 7 },
	})
	if err != nil {
		t.Fatalf("ModifyFilter: %v", err)
	}

	f, err := s.GetFilter(ctx, id)
	if err != nil || f == nil {
		t.Fatalf("GetFilter: %v, %v", f, err)
	}
	if f.Name != "renamed" {
		t.Errorf("name = %q, want renamed", f.Name)
	}
	if f.Term != "rows=7" {
		t.Errorf("term = %q, want rows=7", f.Term)
	}
}
