// ABOUTME: Unit tests for the filter tokenizer: relations, quoting, bare
// ABOUTME: markers, numeric detection and connective classification.
package filter_test

import (
	"testing"

	"github.com/varden/scanmgr/internal/filter"
)

func TestParse_Empty(t *testing.T) {
	t.Parallel()
	terms := filter.Parse("")
	if terms == nil {
		t.Fatal("Parse(\"\") = nil, want empty slice")
	}
	if len(terms) != 0 {
		t.Errorf("len = %d, want 0", len(terms))
	}
}

func TestParse_ColumnRelations(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in    string
		col   string
		rel   filter.Relation
		value string
	}{
		{"name=foo", "name", filter.RelEqual, "foo"},
		{"name~foo", "name", filter.RelApprox, "foo"},
		{"severity>7.0", "severity", filter.RelAbove, "7.0"},
		{"severity<3", "severity", filter.RelBelow, "3"},
		{"host:^192\\.168", "host", filter.RelRegex, "^192\\.168"},
	}
	for _, tc := range cases {
		terms := filter.Parse(tc.in)
		if len(terms) != 1 {
			t.Fatalf("Parse(%q): %d terms, want 1", tc.in, len(terms))
		}
		got := terms[0]
		if got.Column != tc.col || got.Relation != tc.rel || got.Text != tc.value {
			t.Errorf("Parse(%q) = {%q %v %q}, want {%q %v %q}",
				tc.in, got.Column, got.Relation, got.Text, tc.col, tc.rel, tc.value)
		}
	}
}

func TestParse_QuotedValue(t *testing.T) {
	t.Parallel()
	terms := filter.Parse(`name="two words"`)
	if len(terms) != 1 {
		t.Fatalf("got %d terms, want 1", len(terms))
	}
	if terms[0].Text != "two words" || !terms[0].Quoted {
		t.Errorf("got text %q quoted=%v, want \"two words\" quoted=true", terms[0].Text, terms[0].Quoted)
	}
}

func TestParse_QuotedBareTerm(t *testing.T) {
	t.Parallel()
	terms := filter.Parse(`"and now" or`)
	if len(terms) != 2 {
		t.Fatalf("got %d terms, want 2", len(terms))
	}
	if terms[0].Connective() {
		t.Error("quoted phrase classified as connective")
	}
	if !terms[1].Connective() {
		t.Error("bare or not classified as connective")
	}
}

func TestParse_BareMarkers(t *testing.T) {
	t.Parallel()
	terms := filter.Parse("=exact ~fuzzy plain")
	if len(terms) != 3 {
		t.Fatalf("got %d terms, want 3", len(terms))
	}
	if !terms[0].ExactBare || terms[0].Text != "exact" {
		t.Errorf("term 0 = %+v, want exact bare", terms[0])
	}
	if !terms[1].ApproxBare || terms[1].Text != "fuzzy" {
		t.Errorf("term 1 = %+v, want approx bare", terms[1])
	}
	if terms[2].ExactBare || terms[2].ApproxBare || terms[2].Column != "" {
		t.Errorf("term 2 = %+v, want plain bare", terms[2])
	}
}

func TestParse_NumericDetection(t *testing.T) {
	t.Parallel()
	terms := filter.Parse("rows=10 severity>7.5 name=abc")
	if terms[0].Kind != filter.KindInteger || terms[0].Int != 10 {
		t.Errorf("rows term = %+v, want integer 10", terms[0])
	}
	if terms[1].Kind != filter.KindReal || terms[1].Real != 7.5 {
		t.Errorf("severity term = %+v, want real 7.5", terms[1])
	}
	if terms[2].Kind != filter.KindText {
		t.Errorf("name term kind = %v, want text", terms[2].Kind)
	}
}

func TestParse_ConnectiveCaseInsensitive(t *testing.T) {
	t.Parallel()
	for _, word := range []string{"AND", "Or", "not", "RE", "regexp"} {
		terms := filter.Parse(word)
		if len(terms) != 1 || !terms[0].Connective() {
			t.Errorf("Parse(%q) not recognized as connective", word)
		}
	}
}

func TestTerm_Invariant(t *testing.T) {
	t.Parallel()
	// Column and relation are empty exactly for connectives and free text.
	for _, in := range []string{"and", "or", "freetext", `"a phrase"`} {
		got := filter.Parse(in)[0]
		if got.Column != "" || got.Relation != filter.RelNone {
			t.Errorf("Parse(%q) = column %q relation %v, want none", in, got.Column, got.Relation)
		}
	}
	for _, in := range []string{"name=x", "severity>1", "tag=a=b"} {
		got := filter.Parse(in)[0]
		if got.Column == "" || got.Relation == filter.RelNone {
			t.Errorf("Parse(%q) lost column or relation", in)
		}
	}
}

func TestParse_TagValueKeepsFirstSplit(t *testing.T) {
	t.Parallel()
	got := filter.Parse("tag=os=linux")[0]
	if got.Column != "tag" || got.Relation != filter.RelEqual || got.Text != "os=linux" {
		t.Errorf("got %+v, want tag=os=linux split at first symbol", got)
	}
}
