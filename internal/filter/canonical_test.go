// ABOUTME: Unit tests for canonical filter re-serialization: exclusion,
// ABOUTME: rows sentinel resolution, quoting and idempotence.
package filter_test

import (
	"testing"

	"github.com/varden/scanmgr/internal/filter"
)

func TestCanonical_Empty(t *testing.T) {
	t.Parallel()
	if got := filter.Canonical(filter.Parse(""), "", filter.Options{}); got != "" {
		t.Errorf("Canonical(empty) = %q, want \"\"", got)
	}
}

func TestCanonical_PreservesSyntax(t *testing.T) {
	t.Parallel()
	in := `name~foo and severity>7.0 "two words" =exact sort=created`
	got := filter.Canonical(filter.Parse(in), "", filter.Options{})
	if got != in {
		t.Errorf("Canonical = %q, want %q", got, in)
	}
}

func TestCanonical_ResolvesRowsSentinel(t *testing.T) {
	t.Parallel()
	opts := filter.Options{DefaultRows: func() int64 { return 25 }}
	got := filter.Canonical(filter.Parse("name~a rows=-2"), "", opts)
	if want := "name~a rows=25"; got != want {
		t.Errorf("Canonical = %q, want %q", got, want)
	}
}

func TestCanonical_AppliesRowCap(t *testing.T) {
	t.Parallel()
	got := filter.Canonical(filter.Parse("rows=9999"), "", filter.Options{MaxRows: 1000})
	if want := "rows=1000"; got != want {
		t.Errorf("Canonical = %q, want %q", got, want)
	}
}

func TestCanonical_ExcludesColumn(t *testing.T) {
	t.Parallel()
	got := filter.Canonical(filter.Parse("name~a FIRST=5 rows=10"), "first", filter.Options{})
	if want := "name~a rows=10"; got != want {
		t.Errorf("Canonical = %q, want %q", got, want)
	}

	// A leading underscore on the token's column is ignored when matching.
	got = filter.Canonical(filter.Parse("_owner=alice name~a"), "owner", filter.Options{})
	if want := "name~a"; got != want {
		t.Errorf("Canonical = %q, want %q", got, want)
	}
}

func TestCanonical_Idempotent(t *testing.T) {
	t.Parallel()
	opts := filter.Options{DefaultRows: func() int64 { return 10 }}
	inputs := []string{
		"name~foo and severity>7.0 sort=created rows=-2 first=1",
		`comment="a b" =exact not threat~High`,
		"tag=os=linux rows=50 sort-reverse=modified",
	}
	for _, in := range inputs {
		once := filter.Canonical(filter.Parse(in), "", opts)
		twice := filter.Canonical(filter.Parse(once), "", opts)
		if once != twice {
			t.Errorf("not idempotent for %q:\n once %q\ntwice %q", in, once, twice)
		}
	}
}
