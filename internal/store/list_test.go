// ABOUTME: Integration tests for store/list.go — filtered resource listings.
// ABOUTME: Uses testutil.NewTestDB; each test runs in its own container (t.Parallel).
package store_test

import (
	"context"
	"testing"

	"github.com/varden/scanmgr/internal/acl"
	"github.com/varden/scanmgr/internal/filter"
	"github.com/varden/scanmgr/internal/store"
	"github.com/varden/scanmgr/internal/testutil"
)

// seedTask inserts one task row owned by ownerID.
func seedTask(t *testing.T, s *store.Store, uuid, name string, ownerID int64, severity float64) {
	t.Helper()
	_, err := s.DB().ExecContext(context.Background(), `
		INSERT INTO tasks (uuid, name, owner, latest_severity, run_status)
		VALUES ($1, $2, $3, $4, 2)`,
		uuid, name, ownerID, severity,
	)
	if err != nil {
		t.Fatalf("seed task %s: %v", name, err)
	}
}

func TestListTasks_FilterAndSort(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	seedTask(t, s, "aaaa-1", "web proxy scan", alice.ID, 7.5)
	seedTask(t, s, "aaaa-2", "mail server scan", alice.ID, 4.0)
	seedTask(t, s, "aaaa-3", "dns audit", alice.ID, 1.2)

	user := acl.User{ID: alice.ID, Name: alice.Name}

	result, err := s.List(ctx, store.ListRequest{
		Resource: filter.ResourceTask,
		Filter:   "proxy",
		User:     user,
		MaxRows:  1000,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(result.Rows))
	}
	if got := result.Rows[0]["name"]; got != "web proxy scan" {
		t.Errorf("name = %v, want web proxy scan", got)
	}
	if result.Filtered != 1 {
		t.Errorf("Filtered = %d, want 1", result.Filtered)
	}
	if result.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Total)
	}

	result, err = s.List(ctx, store.ListRequest{
		Resource: filter.ResourceTask,
		Filter:   "severity>5.0 sort-reverse=severity",
		User:     user,
		MaxRows:  1000,
	})
	if err != nil {
		t.Fatalf("List severity: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("severity>5.0: got %d rows, want 1", len(result.Rows))
	}
}

func TestListTasks_Pagination(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	names := []string{"task a", "task b", "task c", "task d", "task e"}
	for i, name := range names {
		seedTask(t, s, names[i], name, alice.ID, 0)
	}
	user := acl.User{ID: alice.ID, Name: alice.Name}

	result, err := s.List(ctx, store.ListRequest{
		Resource: filter.ResourceTask,
		Filter:   "first=2 rows=2 sort=name",
		User:     user,
		MaxRows:  1000,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(result.Rows))
	}
	if got := result.Rows[0]["name"]; got != "task b" {
		t.Errorf("first row = %v, want task b", got)
	}
	if result.Applied.Offset != 1 {
		t.Errorf("Offset = %d, want 1", result.Applied.Offset)
	}
	if result.Filtered != 5 {
		t.Errorf("Filtered = %d, want 5", result.Filtered)
	}
}

func TestListTasks_OwnershipIsolation(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser alice: %v", err)
	}
	bob, err := s.CreateUser(ctx, "bob", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser bob: %v", err)
	}
	root, err := s.CreateUser(ctx, "root", "", "", true)
	if err != nil {
		t.Fatalf("CreateUser root: %v", err)
	}
	seedTask(t, s, "t-alice", "alice task", alice.ID, 0)
	seedTask(t, s, "t-bob", "bob task", bob.ID, 0)

	result, err := s.List(ctx, store.ListRequest{
		Resource: filter.ResourceTask,
		User:     acl.User{ID: alice.ID, Name: "alice"},
		MaxRows:  1000,
	})
	if err != nil {
		t.Fatalf("List as alice: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["name"] != "alice task" {
		t.Errorf("alice sees %d rows (%v), want only her own", len(result.Rows), result.Rows)
	}

	result, err = s.List(ctx, store.ListRequest{
		Resource: filter.ResourceTask,
		User:     acl.User{ID: root.ID, Name: "root", Admin: true},
		MaxRows:  1000,
	})
	if err != nil {
		t.Fatalf("List as admin: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Errorf("admin sees %d rows, want 2", len(result.Rows))
	}

	// owner= narrows the admin view to one user's rows.
	result, err = s.List(ctx, store.ListRequest{
		Resource: filter.ResourceTask,
		Filter:   "owner=bob",
		User:     acl.User{ID: root.ID, Name: "root", Admin: true},
		MaxRows:  1000,
	})
	if err != nil {
		t.Fatalf("List owner=bob: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["name"] != "bob task" {
		t.Errorf("owner=bob: got %v, want bob task only", result.Rows)
	}
}

func TestListTasks_RowCapAndDefaultRows(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	for i := 0; i < 5; i++ {
		seedTask(t, s, string(rune('a'+i))+"-uuid", "task "+string(rune('a'+i)), alice.ID, 0)
	}
	user := acl.User{ID: alice.ID, Name: "alice"}

	// rows=-2 resolves through DefaultRows.
	result, err := s.List(ctx, store.ListRequest{
		Resource:    filter.ResourceTask,
		Filter:      "rows=-2",
		User:        user,
		MaxRows:     1000,
		DefaultRows: func() int64 { return 3 },
	})
	if err != nil {
		t.Fatalf("List rows=-2: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Errorf("rows=-2: got %d rows, want 3", len(result.Rows))
	}
	if result.Applied.Limit != 3 {
		t.Errorf("Applied.Limit = %d, want 3", result.Applied.Limit)
	}

	// The cap applies even without a rows token.
	result, err = s.List(ctx, store.ListRequest{
		Resource: filter.ResourceTask,
		User:     user,
		MaxRows:  2,
	})
	if err != nil {
		t.Fatalf("List capped: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Errorf("capped: got %d rows, want 2", len(result.Rows))
	}
}

func TestListTasks_TrashIsSeparate(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	seedTask(t, s, "live-1", "live task", alice.ID, 0)
	user := acl.User{ID: alice.ID, Name: "alice"}

	result, err := s.List(ctx, store.ListRequest{
		Resource: filter.ResourceTask,
		Trash:    true,
		User:     user,
		MaxRows:  1000,
	})
	if err != nil {
		t.Fatalf("List trash: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("trash listing has %d rows, want 0", len(result.Rows))
	}
}

func TestListTasks_TrashTagFilter(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "", "", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	seedTask(t, s, "trash-1", "retired scan", alice.ID, 0)
	db := s.DB()
	if _, err := db.ExecContext(ctx, `INSERT INTO tasks_trash SELECT * FROM tasks WHERE uuid = 'trash-1'`); err != nil {
		t.Fatalf("move task to trash: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE uuid = 'trash-1'`); err != nil {
		t.Fatalf("delete live task: %v", err)
	}
	_, err = db.ExecContext(ctx, `
		WITH tg AS (
			INSERT INTO tags (uuid, name, owner, value) VALUES ('tg-1', 'os', $1, 'linux')
			RETURNING id
		)
		INSERT INTO tag_resources (tag, resource_type, resource, resource_uuid)
		SELECT tg.id, 'task', tt.id, tt.uuid FROM tg, tasks_trash tt WHERE tt.uuid = 'trash-1'`,
		alice.ID,
	)
	if err != nil {
		t.Fatalf("tag trashed task: %v", err)
	}

	result, err := s.List(ctx, store.ListRequest{
		Resource: filter.ResourceTask,
		Trash:    true,
		Filter:   "tag=os",
		User:     acl.User{ID: alice.ID, Name: "alice"},
		MaxRows:  1000,
	})
	if err != nil {
		t.Fatalf("List trash tag=os: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["name"] != "retired scan" {
		t.Errorf("trash tag listing = %v, want the retired scan", result.Rows)
	}
}
