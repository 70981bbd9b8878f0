// ABOUTME: Canonical re-serialization of a term sequence, used when persisting named filters.
// ABOUTME: Resolves the rows default sentinel and can excise one named column.
package filter

import (
	"strconv"
	"strings"
)

// Canonical rebuilds a normalized filter string from the term sequence.
// Tokens whose column case-insensitively equals exclude (directly or with a
// leading underscore stripped) are omitted. The rows keyword is rewritten
// with its resolved value so the canonical form always carries a concrete
// page size. An empty input canonicalizes to the empty string.
func Canonical(terms []Term, exclude string, opts Options) string {
	var parts []string
	for _, t := range terms {
		if excluded(t.Column, exclude) {
			continue
		}
		if p := serialize(t, opts); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func excluded(column, exclude string) bool {
	if exclude == "" || column == "" {
		return false
	}
	if strings.EqualFold(column, exclude) {
		return true
	}
	return strings.EqualFold(strings.TrimPrefix(column, "_"), exclude)
}

func serialize(t Term, opts Options) string {
	if t.Column == "" {
		marker := ""
		switch {
		case t.ExactBare:
			marker = "="
		case t.ApproxBare:
			marker = "~"
		}
		return marker + quoteValue(t.Text, t.Quoted)
	}
	value := t.Text
	if t.Column == "rows" {
		value = strconv.FormatInt(ParseRows(t.Text, opts), 10)
	}
	return t.Column + t.Relation.Symbol() + quoteValue(value, t.Quoted)
}

func quoteValue(s string, quoted bool) string {
	if quoted {
		return `"` + s + `"`
	}
	return s
}
