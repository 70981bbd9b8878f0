// ABOUTME: Token model and tokenizer for the textual filter language.
// ABOUTME: Parse turns a raw filter string into the []Term consumed by Compile and friends.
package filter

import (
	"strconv"
	"strings"
)

// Relation is the comparison a column-qualified term requests.
type Relation int

// Relations, in the order the tokenizer recognizes their symbols.
const (
	RelNone Relation = iota
	RelEqual
	RelApprox
	RelAbove
	RelBelow
	RelRegex
)

// Symbol returns the filter-syntax symbol for the relation, or "" for RelNone.
func (r Relation) Symbol() string {
	switch r {
	case RelEqual:
		return "="
	case RelApprox:
		return "~"
	case RelAbove:
		return ">"
	case RelBelow:
		return "<"
	case RelRegex:
		return ":"
	}
	return ""
}

// Kind is the declared or detected value type of a term or column.
type Kind int

// Value kinds. KindText is the zero value so unspecified columns compare as text.
const (
	KindText Kind = iota
	KindInteger
	KindReal
)

// Term is one parsed unit of a filter expression: a bare word, a quoted
// phrase, a connective, or a column<relation>value keyword.
//
// Invariant: Column == "" and Relation == RelNone exactly when the term is a
// connective word (and/or/not/re/regexp) or a free-text search term.
type Term struct {
	Column   string
	Text     string
	Kind     Kind
	Int      int64
	Real     float64
	Relation Relation

	// Quoted records whether the value was written as "..."; it affects
	// re-serialization only, never matching.
	Quoted bool
	// ExactBare marks a bare term written =word (exact free-text match).
	ExactBare bool
	// ApproxBare marks a bare term written ~word (explicit fuzzy match).
	ApproxBare bool
}

// connectives are the reserved logical words. They only count as connectives
// when bare, unquoted and unmarked.
var connectives = map[string]bool{
	"and":    true,
	"or":     true,
	"not":    true,
	"re":     true,
	"regexp": true,
}

// Connective reports whether the term is a logical connective word.
func (t Term) Connective() bool {
	if t.Column != "" || t.Relation != RelNone || t.Quoted || t.ExactBare || t.ApproxBare {
		return false
	}
	return connectives[strings.ToLower(t.Text)]
}

// ParseInt returns the term's value as an integer, using the detected numeric
// value when available and falling back to a best-effort parse of the text.
// Unparseable text yields 0.
func (t Term) ParseInt() int64 {
	switch t.Kind {
	case KindInteger:
		return t.Int
	case KindReal:
		return int64(t.Real)
	}
	n, _ := strconv.ParseInt(strings.TrimSpace(t.Text), 10, 64)
	return n
}

// Parse splits a raw filter string into an ordered term sequence. A missing
// filter is represented as an empty slice, never nil semantics the callers
// must care about. The tokenizer recognizes:
//
//   - whitespace-separated parts, with double quotes grouping spaces
//   - column<relation>value keywords using the symbols = ~ > < :
//   - bare terms prefixed = (exact) or ~ (fuzzy)
//   - integer and real literal values
func Parse(text string) []Term {
	var terms []Term
	for _, chunk := range splitQuoted(text) {
		if chunk == "" {
			continue
		}
		terms = append(terms, parseChunk(chunk))
	}
	if terms == nil {
		return []Term{}
	}
	return terms
}

// splitQuoted splits on whitespace, keeping double-quoted regions (including
// the quotes) intact so parseChunk can see the quoting.
func splitQuoted(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// parseChunk turns one whitespace-delimited chunk into a Term.
func parseChunk(chunk string) Term {
	var t Term

	// Find the first relation symbol outside quotes. A symbol at position 0
	// is a bare-term marker (= exact, ~ fuzzy), not a relation.
	idx, rel := findRelation(chunk)
	switch {
	case idx > 0:
		t.Column = chunk[:idx]
		t.Relation = rel
		t.Text, t.Quoted = unquote(chunk[idx+1:])
	case idx == 0 && (rel == RelEqual || rel == RelApprox) && len(chunk) > 1:
		if rel == RelEqual {
			t.ExactBare = true
		} else {
			t.ApproxBare = true
		}
		t.Text, t.Quoted = unquote(chunk[1:])
	default:
		t.Text, t.Quoted = unquote(chunk)
	}

	t.Kind, t.Int, t.Real = detectNumber(t.Text)
	return t
}

// findRelation returns the index and relation of the first unquoted relation
// symbol, or (-1, RelNone).
func findRelation(chunk string) (int, Relation) {
	inQuote := false
	for i, r := range chunk {
		if r == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch r {
		case '=':
			return i, RelEqual
		case '~':
			return i, RelApprox
		case '>':
			return i, RelAbove
		case '<':
			return i, RelBelow
		case ':':
			return i, RelRegex
		}
	}
	return -1, RelNone
}

// unquote strips one pair of surrounding double quotes, reporting whether the
// value was quoted.
func unquote(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1], true
	}
	return s, false
}

// detectNumber classifies a literal as integer, real or text.
func detectNumber(s string) (Kind, int64, float64) {
	if s == "" {
		return KindText, 0, 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return KindInteger, n, float64(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return KindReal, 0, f
	}
	return KindText, 0, 0
}
